package model

// EquipmentClass groups a room's equipment options for conflict and display
// purposes.  The combined class marks options that take exclusive use of
// every sub-resource in the room for their slot.
type EquipmentClass string

const (
	ClassDefault   EquipmentClass = "default"
	ClassAlternate EquipmentClass = "alternate"
	ClassCombined  EquipmentClass = "combined"
)

// Valid reports whether c is one of the known equipment classes.
func (c EquipmentClass) Valid() bool {
	switch c {
	case ClassDefault, ClassAlternate, ClassCombined:
		return true
	}
	return false
}

// EquipmentOption is one entry of a room's closed equipment list.  Options
// are compared by exact label; the class carries the exclusivity semantics,
// so nothing ever needs to inspect the label text itself.
type EquipmentOption struct {
	Label string         `yaml:"label" json:"label"`
	Class EquipmentClass `yaml:"class" json:"class"`
}

// Combined reports whether booking this option locks every sub-resource of
// the room for the slot.
func (o EquipmentOption) Combined() bool { return o.Class == ClassCombined }

// Room is a statically configured bookable resource.  Worksheet names the
// backing collection holding the room's reservations.
type Room struct {
	ID        string                    `yaml:"id" json:"id"`
	Name      string                    `yaml:"name" json:"name"`
	Number    string                    `yaml:"number" json:"number"`
	Worksheet string                    `yaml:"worksheet" json:"-"`
	Notice    string                    `yaml:"notice" json:"notice"`
	Equipment []EquipmentOption         `yaml:"equipment" json:"equipment"`
	Colors    map[EquipmentClass]string `yaml:"colors" json:"colors"`
}

// Option looks up an equipment option by exact label.  The second return
// value is false when the label is not part of the room's option list.
func (r *Room) Option(label string) (EquipmentOption, bool) {
	for _, o := range r.Equipment {
		if o.Label == label {
			return o, true
		}
	}
	return EquipmentOption{}, false
}

// Color returns the display color for an equipment label.  Labels outside
// the room's option list fall back to the default class color, so rows that
// drifted in through hand-edited sheets still render.
func (r *Room) Color(label string) string {
	class := ClassDefault
	if o, ok := r.Option(label); ok {
		class = o.Class
	}
	if c, ok := r.Colors[class]; ok {
		return c
	}
	return r.Colors[ClassDefault]
}
