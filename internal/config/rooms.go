package config

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/collectiveminds/lab-booking/internal/model"
)

// defaultRoomsYAML carries the room catalogue of the reference deployment:
// two EEG rooms and two fNIRS rooms on the fourth floor.  Deployments with a
// different floor plan point ROOMS_CONFIG at their own file.
//
//go:embed rooms.yaml
var defaultRoomsYAML []byte

// Worksheet names end up as table identifiers in the MySQL sheet store, so
// they are restricted to a conservative identifier alphabet here.
var worksheetName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RoomCatalogue is the static set of bookable rooms, loaded once at startup.
// The catalogue never changes while the service runs.
type RoomCatalogue struct {
	Rooms []model.Room `yaml:"rooms"`

	byID map[string]*model.Room
}

// LoadRooms builds the catalogue from the file at path, or from the embedded
// defaults when path is empty.  The catalogue is validated so every later
// lookup can trust option classes, colors and worksheet names.
func LoadRooms(path string) (*RoomCatalogue, error) {
	raw := defaultRoomsYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rooms config: %w", err)
		}
		raw = b
	}
	var cat RoomCatalogue
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse rooms config: %w", err)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	cat.byID = make(map[string]*model.Room, len(cat.Rooms))
	for i := range cat.Rooms {
		cat.byID[cat.Rooms[i].ID] = &cat.Rooms[i]
	}
	return &cat, nil
}

func (c *RoomCatalogue) validate() error {
	if len(c.Rooms) == 0 {
		return fmt.Errorf("rooms config: no rooms defined")
	}
	seenID := map[string]bool{}
	seenWS := map[string]bool{}
	for _, r := range c.Rooms {
		if r.ID == "" {
			return fmt.Errorf("rooms config: room with empty id")
		}
		if seenID[r.ID] {
			return fmt.Errorf("rooms config: duplicate room id %q", r.ID)
		}
		seenID[r.ID] = true
		if !worksheetName.MatchString(r.Worksheet) {
			return fmt.Errorf("rooms config: room %s: invalid worksheet name %q", r.ID, r.Worksheet)
		}
		if seenWS[r.Worksheet] {
			return fmt.Errorf("rooms config: duplicate worksheet %q", r.Worksheet)
		}
		seenWS[r.Worksheet] = true
		if len(r.Equipment) == 0 {
			return fmt.Errorf("rooms config: room %s: no equipment options", r.ID)
		}
		seenLabel := map[string]bool{}
		for _, o := range r.Equipment {
			if o.Label == "" {
				return fmt.Errorf("rooms config: room %s: equipment option with empty label", r.ID)
			}
			if seenLabel[o.Label] {
				return fmt.Errorf("rooms config: room %s: duplicate equipment label %q", r.ID, o.Label)
			}
			seenLabel[o.Label] = true
			if !o.Class.Valid() {
				return fmt.Errorf("rooms config: room %s: equipment %q: unknown class %q", r.ID, o.Label, o.Class)
			}
		}
		if _, ok := r.Colors[model.ClassDefault]; !ok {
			return fmt.Errorf("rooms config: room %s: missing default color", r.ID)
		}
	}
	return nil
}

// Room returns the room with the given id, or nil when no such room exists.
func (c *RoomCatalogue) Room(id string) *model.Room {
	return c.byID[id]
}

// Worksheets lists the backing collection names of all rooms, in catalogue
// order.  The sheet store uses this as its allow-list.
func (c *RoomCatalogue) Worksheets() []string {
	out := make([]string, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		out = append(out, r.Worksheet)
	}
	return out
}
