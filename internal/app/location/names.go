package location

import (
	"context"

	citystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/cities"
	countrystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/countries"
	statestore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/states"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AddressNames is the display form of a LocationRef.
type AddressNames struct {
	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
	City    string `json:"city,omitempty"`
}

// Names maps stored references back to display names.
type Names struct {
	countries map[primitive.ObjectID]string
	states    map[primitive.ObjectID]string
	cities    map[primitive.ObjectID]string
}

// Of returns the names for ref. Unknown ids yield empty strings.
func (n Names) Of(ref models.LocationRef) AddressNames {
	var a AddressNames
	if ref.CountryID != nil {
		a.Country = n.countries[*ref.CountryID]
	}
	if ref.StateID != nil {
		a.State = n.states[*ref.StateID]
	}
	if ref.CityID != nil {
		a.City = n.cities[*ref.CityID]
	}
	return a
}

// Namer batches display-name lookups for users and tasks.
type Namer struct {
	countries *countrystore.Store
	states    *statestore.Store
	cities    *citystore.Store
}

func NewNamer(db *mongo.Database) *Namer {
	return &Namer{countries: countrystore.New(db), states: statestore.New(db), cities: citystore.New(db)}
}

// Names loads the names for every id in refs with one query per level.
func (n *Namer) Names(ctx context.Context, refs ...models.LocationRef) (Names, error) {
	var countryIDs, stateIDs, cityIDs []primitive.ObjectID
	for _, ref := range refs {
		if ref.CountryID != nil {
			countryIDs = append(countryIDs, *ref.CountryID)
		}
		if ref.StateID != nil {
			stateIDs = append(stateIDs, *ref.StateID)
		}
		if ref.CityID != nil {
			cityIDs = append(cityIDs, *ref.CityID)
		}
	}

	var out Names
	var err error
	if out.countries, err = n.countries.NamesByID(ctx, countryIDs); err != nil {
		return Names{}, err
	}
	if out.states, err = n.states.NamesByID(ctx, stateIDs); err != nil {
		return Names{}, err
	}
	if out.cities, err = n.cities.NamesByID(ctx, cityIDs); err != nil {
		return Names{}, err
	}
	return out, nil
}
