// Package project implements the Project Store: the ordered project list,
// the current selection and the request flags around them.
package project

import (
	"maps"
	"slices"
)

// Location is where a project is built.
type Location struct {
	Address    string  `json:"address"`
	PostalCode *string `json:"postalCode,omitempty"`
	Country    *string `json:"country,omitempty"`
}

// Designs holds the generated design artifacts. Slot contents are opaque.
type Designs struct {
	TwoD       any `json:"2d,omitempty"`
	ThreeD     any `json:"3d,omitempty"`
	Structural any `json:"structural,omitempty"`
	MEP        any `json:"mep,omitempty"`
}

// Project is one architectural project.
type Project struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	SurfaceArea  float64        `json:"surfaceArea"`
	Location     Location       `json:"location"`
	Requirements map[string]any `json:"requirements"`
	Status       string         `json:"status"`
	CreatedAt    string         `json:"createdAt"`
	Designs      *Designs       `json:"designs,omitempty"`
	Portfolio    any            `json:"portfolio,omitempty"`
}

// Patch carries the fields of an update. Nil fields are left unchanged.
// Applying a patch is a shallow merge: a non-nil Location, Requirements,
// Designs or Portfolio replaces the old value as a whole.
type Patch struct {
	ID           *string        `json:"id,omitempty"`
	Name         *string        `json:"name,omitempty"`
	Type         *string        `json:"type,omitempty"`
	SurfaceArea  *float64       `json:"surfaceArea,omitempty"`
	Location     *Location      `json:"location,omitempty"`
	Requirements map[string]any `json:"requirements,omitempty"`
	Status       *string        `json:"status,omitempty"`
	CreatedAt    *string        `json:"createdAt,omitempty"`
	Designs      *Designs       `json:"designs,omitempty"`
	Portfolio    any            `json:"portfolio,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ID == nil && p.Name == nil && p.Type == nil && p.SurfaceArea == nil &&
		p.Location == nil && p.Requirements == nil && p.Status == nil &&
		p.CreatedAt == nil && p.Designs == nil && p.Portfolio == nil
}

// Apply returns a copy of proj with the patch merged on top.
func (p Patch) Apply(proj Project) Project {
	out := proj.Clone()
	if p.ID != nil {
		out.ID = *p.ID
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.SurfaceArea != nil {
		out.SurfaceArea = *p.SurfaceArea
	}
	if p.Location != nil {
		out.Location = p.Location.clone()
	}
	if p.Requirements != nil {
		out.Requirements = cloneMap(p.Requirements)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.CreatedAt != nil {
		out.CreatedAt = *p.CreatedAt
	}
	if p.Designs != nil {
		d := p.Designs.clone()
		out.Designs = &d
	}
	if p.Portfolio != nil {
		out.Portfolio = cloneValue(p.Portfolio)
	}
	return out
}

// Clone returns a copy sharing no mutable memory with p.
func (p Project) Clone() Project {
	out := p
	out.Location = p.Location.clone()
	out.Requirements = cloneMap(p.Requirements)
	if p.Designs != nil {
		d := p.Designs.clone()
		out.Designs = &d
	}
	out.Portfolio = cloneValue(p.Portfolio)
	return out
}

func (l Location) clone() Location {
	out := l
	if l.PostalCode != nil {
		v := *l.PostalCode
		out.PostalCode = &v
	}
	if l.Country != nil {
		v := *l.Country
		out.Country = &v
	}
	return out
}

func (d Designs) clone() Designs {
	return Designs{
		TwoD:       cloneValue(d.TwoD),
		ThreeD:     cloneValue(d.ThreeD),
		Structural: cloneValue(d.Structural),
		MEP:        cloneValue(d.MEP),
	}
}

func cloneProjects(list []Project) []Project {
	if list == nil {
		return nil
	}
	out := make([]Project, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}

func cloneProjectPtr(p *Project) *Project {
	if p == nil {
		return nil
	}
	c := p.Clone()
	return &c
}

// cloneValue copies the containers produced by encoding/json. Other values
// are returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := slices.Clone(t)
		for i := range out {
			out[i] = cloneValue(out[i])
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}
