// Package crs resolves spatial reference descriptors into comparable CRS handles.
// Any positive EPSG code resolves. An embedded definition table (plus the generated
// WGS 84 / UTM zones) adds names, WKT and units to the codes it knows. WKT and PROJ
// strings are normalized and, when they carry a known EPSG authority, reduced to that code.
package crs

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/muesli/reflow/truncate"
)

var (
	// ErrInvalidDescriptor is returned when a descriptor is missing or contradicts itself.
	ErrInvalidDescriptor = errors.New("invalid srs descriptor")
	// ErrUnresolvable is returned when a descriptor cannot be turned into a CRS.
	ErrUnresolvable = errors.New("unresolvable crs")
)

const epsgAuthority = "EPSG"

// SRS is a spatial reference descriptor. At most one of the fields is normally set.
type SRS struct {
	EPSG int    `json:"epsg,omitempty" validate:"omitempty,gt=0"`
	WKT  string `json:"wkt,omitempty"`
	Proj string `json:"proj,omitempty"`
}

func (s SRS) IsZero() bool {
	return s == SRS{}
}

// CRS is an opaque, comparable coordinate reference system handle.
// Two handles describing the same CRS compare equal with ==.
type CRS struct {
	description   string
	authorityName string
	authorityCode string
	wkt           string
	proj          string
}

// Resolve turns a descriptor into a CRS. When several fields are given they
// must all resolve to the same CRS.
func Resolve(srs SRS) (CRS, error) {
	var resolved []CRS
	if srs.WKT != "" {
		c, err := FromWKT(srs.WKT)
		if err != nil {
			return CRS{}, err
		}
		resolved = append(resolved, c)
	}
	if srs.EPSG != 0 {
		c, err := FromEPSG(srs.EPSG)
		if err != nil {
			return CRS{}, err
		}
		resolved = append(resolved, c)
	}
	if srs.Proj != "" {
		c, err := FromProj(srs.Proj)
		if err != nil {
			return CRS{}, err
		}
		resolved = append(resolved, c)
	}
	if len(resolved) == 0 {
		return CRS{}, fmt.Errorf("provide either 'wkt', 'epsg' or 'proj' definition: %w", ErrInvalidDescriptor)
	}
	for _, c := range resolved[1:] {
		if !sameCRS(c, resolved[0]) {
			return CRS{}, fmt.Errorf("conflicting srs definitions %v and %v: %w", resolved[0], c, ErrInvalidDescriptor)
		}
	}
	return resolved[0], nil
}

// sameCRS compares by EPSG code when both carry one, so a WKT with an EPSG
// authority agrees with the bare code.
func sameCRS(a, b CRS) bool {
	codeA, okA := a.EPSG()
	codeB, okB := b.EPSG()
	if okA && okB {
		return codeA == codeB
	}
	return a == b
}

// FromEPSG returns the CRS for the EPSG code. Codes missing from the definition
// table resolve to a handle without WKT and without known units.
func FromEPSG(code int) (CRS, error) {
	if code <= 0 {
		return CRS{}, fmt.Errorf("EPSG code must be positive, got %d: %w", code, ErrUnresolvable)
	}
	def, ok := lookupEPSG(code)
	if !ok {
		return CRS{
			description:   epsgAuthority + ":" + strconv.Itoa(code),
			authorityName: epsgAuthority,
			authorityCode: strconv.Itoa(code),
		}, nil
	}
	return CRS{
		description:   def.Name,
		authorityName: epsgAuthority,
		authorityCode: strconv.Itoa(code),
		wkt:           def.WKT,
	}, nil
}

func MustFromEPSG(code int) CRS {
	c, err := FromEPSG(code)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CRS) IsZero() bool {
	return c == CRS{}
}

func (c CRS) Description() string {
	return c.description
}

func (c CRS) AuthorityName() string {
	return c.authorityName
}

func (c CRS) AuthorityCode() string {
	return c.authorityCode
}

// EPSG returns the EPSG code, if the CRS has one.
func (c CRS) EPSG() (int, bool) {
	if c.authorityName != epsgAuthority {
		return 0, false
	}
	code, err := strconv.Atoi(c.authorityCode)
	if err != nil {
		return 0, false
	}
	return code, true
}

// WKT returns the well known text representation, if there is one.
// A CRS that was only ever described by a PROJ string has none.
func (c CRS) WKT() (string, bool) {
	return c.wkt, c.wkt != ""
}

func (c CRS) Proj() string {
	return c.proj
}

// MetersPerUnit is the length of one CRS unit along the equator (or of one metre),
// used for scale denominators. Zero when unknown.
func (c CRS) MetersPerUnit() float64 {
	code, ok := c.EPSG()
	if !ok {
		return 0
	}
	def, ok := lookupEPSG(code)
	if !ok {
		return 0
	}
	return def.MetersPerUnit
}

// SRS returns a descriptor that resolves back to an equal CRS.
func (c CRS) SRS() SRS {
	if c.wkt != "" {
		return SRS{WKT: c.wkt}
	}
	if code, ok := c.EPSG(); ok {
		return SRS{EPSG: code}
	}
	return SRS{Proj: c.proj}
}

func (c CRS) String() string {
	if c.authorityName != "" {
		return c.authorityName + ":" + c.authorityCode
	}
	if c.wkt != "" {
		return truncate.StringWithTail(c.wkt, 60, "...")
	}
	return c.proj
}
