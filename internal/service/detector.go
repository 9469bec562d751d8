package service

import (
	"github.com/mkarev/tokenvault/internal/geo"
	"github.com/mkarev/tokenvault/internal/model"
)

// Classify decides whether a new login looks anomalous compared to the
// account's most recently active session with a known country. It is a pure
// function: deterministic, no side effects, no storage access.
//
// Rules, in order:
//  1. no comparable prior session, or the new location is unknown -> false
//  2. country changed -> true
//  3. both device classes known and different -> true
//  4. otherwise -> false
func Classify(prior *model.Session, class model.DeviceClass, loc geo.Location) bool {
	if prior == nil || prior.CountryCode == "" {
		return false
	}
	if !loc.Known() {
		return false
	}
	if prior.CountryCode != loc.CountryCode {
		return true
	}
	if prior.Device.Known() && class.Known() && prior.Device != class {
		return true
	}
	return false
}
