// internal/domain/models/location.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit carries the created/updated stamps shared by every editable document.
type Audit struct {
	CreatedBy *primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedBy *primitive.ObjectID `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// Country is the top of the location hierarchy. Countries are soft-deleted;
// re-creating one with the same key restores the original row.
type Country struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameKey   string             `bson:"name_key" json:"-"`
	IsDeleted bool               `bson:"is_deleted" json:"is_deleted"`
	Audit     `bson:",inline"`
}

// State belongs to exactly one Country. (country_id, name_key) is unique.
type State struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameKey   string             `bson:"name_key" json:"-"`
	CountryID primitive.ObjectID `bson:"country_id" json:"country_id"`
	IsDeleted bool               `bson:"is_deleted" json:"is_deleted"`
	Audit     `bson:",inline"`
}

// City belongs to exactly one State. (state_id, name_key) is unique.
type City struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameKey   string             `bson:"name_key" json:"-"`
	StateID   primitive.ObjectID `bson:"state_id" json:"state_id"`
	ZipCodes  []string           `bson:"zip_codes" json:"zip_codes"`
	IsDeleted bool               `bson:"is_deleted" json:"is_deleted"`
	Audit     `bson:",inline"`
}

// LocationRef is the denormalized location carried by users and tasks.
type LocationRef struct {
	CountryID *primitive.ObjectID `bson:"country_id,omitempty" json:"country_id,omitempty"`
	StateID   *primitive.ObjectID `bson:"state_id,omitempty" json:"state_id,omitempty"`
	CityID    *primitive.ObjectID `bson:"city_id,omitempty" json:"city_id,omitempty"`
}
