package domain

import "time"

// DriverProfile is the optional driver capability of a user. A user may
// publish rides iff the profile is present.
type DriverProfile struct {
	VehicleModel string
	PlateNumber  string
	Color        string
}

// Vehicle returns a display string for the driver's vehicle.
func (p *DriverProfile) Vehicle() string {
	if p == nil || p.VehicleModel == "" {
		return ""
	}
	if p.PlateNumber == "" {
		return p.VehicleModel
	}
	return p.VehicleModel + " (" + p.PlateNumber + ")"
}

// Rating is a running average maintained incrementally.
type Rating struct {
	Average float64
	Count   int
}

// User is a single identity; driver vs passenger is a capability check
// (DriverProfile != nil), not a type split.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Avatar    string
	Driver    *DriverProfile
	Rating    Rating
	CreatedAt time.Time
}

// IsDriver reports whether the user may publish rides.
func (u *User) IsDriver() bool {
	return u.Driver != nil
}
