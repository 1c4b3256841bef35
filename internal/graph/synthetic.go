package graph

import "github.com/aumo/ecoroute/internal/geo"

// BBox is a (south, west, north, east) bounding box in degrees.
type BBox struct {
	South, West, North, East float64
}

// syntheticSpeedLimits mirrors a typical municipal speed-limit table
// by functional road class, used only to seed synthetic grids (test
// fixtures and the demo graphs of the commands) — a real OSM ingestor
// is out of scope for this module.
var syntheticSpeedLimits = map[RoadClass]float64{
	RoadMotorway:    120,
	RoadTrunk:       100,
	RoadPrimary:     80,
	RoadSecondary:   60,
	RoadTertiary:    50,
	RoadResidential: 30,
	RoadService:     20,
}

var syntheticLanes = map[RoadClass]int{
	RoadMotorway:    3,
	RoadTrunk:       2,
	RoadPrimary:     2,
	RoadSecondary:   2,
	RoadTertiary:    1,
	RoadResidential: 1,
	RoadService:     1,
}

const capacityPerLaneHour = 1800

// BuildSyntheticGrid constructs a gridSize×gridSize grid graph inside
// bbox, with bidirectional edges between orthogonal neighbors. Used
// by tests, cmd/routecli, cmd/preprocess-ch, and cmd/api when no
// graph snapshot has been stored yet.
func BuildSyntheticGrid(bbox BBox, gridSize int, roadClass RoadClass) *RoadGraph {
	g := New()
	if gridSize < 2 {
		gridSize = 2
	}

	latStep := (bbox.North - bbox.South) / float64(gridSize-1)
	lngStep := (bbox.East - bbox.West) / float64(gridSize-1)

	ids := make([][]int64, gridSize)
	nextID := int64(1)
	for i := 0; i < gridSize; i++ {
		ids[i] = make([]int64, gridSize)
		for j := 0; j < gridSize; j++ {
			lat := bbox.South + float64(i)*latStep
			lng := bbox.West + float64(j)*lngStep
			g.AddNode(Node{ID: nextID, Lat: lat, Lng: lng})
			ids[i][j] = nextID
			nextID++
		}
	}

	speed := syntheticSpeedLimits[roadClass]
	lanes := syntheticLanes[roadClass]
	if speed == 0 {
		speed = 40
	}
	if lanes == 0 {
		lanes = 1
	}

	addBidirectional := func(i1, j1, i2, j2 int) {
		a, _ := g.Node(ids[i1][j1])
		b, _ := g.Node(ids[i2][j2])
		length := geo.Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
		mk := func(from, to int64) Edge {
			return Edge{
				From:             from,
				To:               to,
				LengthM:          length,
				FreeFlowSpeedKmh: speed,
				SpeedLimitKmh:    speed,
				Lanes:            lanes,
				Capacity:         float64(lanes * capacityPerLaneHour),
				RoadClass:        roadClass,
				Oneway:           false,
			}
		}
		g.AddEdge(mk(a.ID, b.ID))
		g.AddEdge(mk(b.ID, a.ID))
	}

	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			if i+1 < gridSize {
				addBidirectional(i, j, i+1, j)
			}
			if j+1 < gridSize {
				addBidirectional(i, j, i, j+1)
			}
		}
	}

	return g
}
