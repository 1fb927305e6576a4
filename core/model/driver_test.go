package model

import (
	"testing"
	"time"
)

func TestLicenseCovers(t *testing.T) {
	if !LicenseD.Covers(LicenseC) {
		t.Error("D must cover C")
	}
	if !LicenseE.Covers(LicenseD) {
		t.Error("E must cover D")
	}
	if LicenseB.Covers(LicenseC) {
		t.Error("B must not cover C")
	}
	if LicenseCategory("Z").Covers(LicenseB) {
		t.Error("unknown category must cover nothing")
	}
}

func TestDriverLicenseExpired(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	d := Driver{LicenseExpiry: now}
	if !d.LicenseExpired(now) {
		t.Error("expiry at now counts as expired")
	}
	d.LicenseExpiry = now.Add(time.Minute)
	if d.LicenseExpired(now) {
		t.Error("future expiry is not expired")
	}
}
