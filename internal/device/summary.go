package device

import "sort"

// RoomSummary aggregates the devices in one room.
type RoomSummary struct {
	Room    string   `json:"room"`
	Total   int      `json:"total"`
	On      int      `json:"on"`
	Devices []Device `json:"devices,omitempty"`
}

// RoomCount is the per-room part of a Summary.
type RoomCount struct {
	Total int `json:"total"`
	On    int `json:"on"`
}

// Summary is the campus-wide state shown on the dashboard overview.
//
// TotalWatts sums the value of lamps that are on; an AC unit's value is a
// setpoint, not a power draw, so it is excluded.
type Summary struct {
	Total      int                  `json:"total"`
	On         int                  `json:"on"`
	LightsOn   int                  `json:"lights_on"`
	ACOn       int                  `json:"ac_on"`
	TotalWatts float64              `json:"total_watts"`
	Rooms      map[string]RoomCount `json:"rooms"`
}

// Summarize computes totals over devices.
func Summarize(devices []Device) Summary {
	s := Summary{
		Total: len(devices),
		Rooms: make(map[string]RoomCount),
	}

	for _, d := range devices {
		rc := s.Rooms[d.Room]
		rc.Total++
		if d.Status {
			rc.On++
			s.On++
			switch d.Category {
			case CategoryLight:
				s.LightsOn++
				s.TotalWatts += d.Value
			case CategoryAC:
				s.ACOn++
			}
		}
		s.Rooms[d.Room] = rc
	}

	return s
}

// GroupByRoom returns one RoomSummary per room, sorted by room name.
// Devices keep their input order within a room.
func GroupByRoom(devices []Device) []RoomSummary {
	index := make(map[string]int)
	rooms := make([]RoomSummary, 0)

	for _, d := range devices {
		i, ok := index[d.Room]
		if !ok {
			i = len(rooms)
			index[d.Room] = i
			rooms = append(rooms, RoomSummary{Room: d.Room})
		}
		rooms[i].Total++
		if d.Status {
			rooms[i].On++
		}
		rooms[i].Devices = append(rooms[i].Devices, d)
	}

	sort.Slice(rooms, func(a, b int) bool { return rooms[a].Room < rooms[b].Room })
	return rooms
}
