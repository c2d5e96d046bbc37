package world

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByteArena/box2d"

	"github.com/flatsim/flatsim/internal/document"
)

// Layer is static collision geometry anchored to a single static body. It is
// built once during world load and never moves afterwards.
type Layer struct {
	name  string
	cfrID int
	body  *Body
	color [4]float64
}

type layerEntry struct {
	Name  string    `yaml:"name"`
	Map   string    `yaml:"map"`
	Color []float64 `yaml:"color"`
}

// mapFragment is a layer's geometry document. Only the line_segments form is
// supported; occupancy-grid rasters are out of scope.
type mapFragment struct {
	Type   string      `yaml:"type"`
	Data   string      `yaml:"data"`
	Lines  [][]float64 `yaml:"lines"`
	Scale  float64     `yaml:"scale"`
	Origin []float64   `yaml:"origin"`
}

// MakeLayer builds a layer from one entry of the world document's `layers`
// sequence. worldDir anchors relative map paths.
func MakeLayer(scene *box2d.B2World, cfr *CollisionFilterRegistry, worldDir string, node *document.Node) (*Layer, error) {
	var entry layerEntry
	if err := node.Decode(&entry); err != nil {
		return nil, err
	}
	if entry.Name == "" {
		return nil, document.Errorf("missing layer name in %s line %d", node.File(), node.Line())
	}
	if entry.Map == "" {
		return nil, document.Errorf("missing \"map\" in layer %s", entry.Name)
	}

	id, err := cfr.RegisterLayer(entry.Name)
	if err != nil {
		return nil, &document.ConfigError{
			Msg: fmt.Sprintf("cannot allocate collision class for layer %s", entry.Name),
			Err: err,
		}
	}

	mapPath := entry.Map
	if !filepath.IsAbs(mapPath) {
		mapPath = filepath.Join(worldDir, mapPath)
	}
	segments, err := loadMapSegments(mapPath)
	if err != nil {
		return nil, err
	}

	l := &Layer{name: entry.Name, cfrID: id}
	for i, c := range entry.Color {
		if i >= len(l.color) {
			break
		}
		l.color[i] = c
	}

	l.body, err = newBody(scene, l, entry.Name, "static", [3]float64{})
	if err != nil {
		return nil, &document.ConfigError{Msg: fmt.Sprintf("invalid layer %s", entry.Name), Err: err}
	}

	bits := uint16(1) << uint(id)
	for _, seg := range segments {
		shape := box2d.MakeB2EdgeShape()
		shape.Set(box2d.MakeB2Vec2(seg[0], seg[1]), box2d.MakeB2Vec2(seg[2], seg[3]))
		fd := box2d.MakeB2FixtureDef()
		fd.Shape = &shape
		fd.Filter.CategoryBits = bits
		fd.Filter.MaskBits = bits
		l.body.physics.CreateFixtureFromDef(&fd)
	}
	return l, nil
}

// loadMapSegments reads a map fragment and returns its line segments as
// [x1, y1, x2, y2] in world coordinates (scaled, then placed at origin).
func loadMapSegments(mapPath string) ([][4]float64, error) {
	doc, err := document.Load(mapPath)
	if err != nil {
		return nil, err
	}
	var frag mapFragment
	if err := doc.Decode(&frag); err != nil {
		return nil, err
	}
	if frag.Type != "line_segments" {
		return nil, document.Errorf("unsupported map type %q in %s, must be line_segments", frag.Type, mapPath)
	}
	if frag.Scale == 0 {
		frag.Scale = 1
	}
	var origin [3]float64
	for i, v := range frag.Origin {
		if i >= len(origin) {
			break
		}
		origin[i] = v
	}

	var raw [][4]float64
	switch {
	case frag.Data != "":
		dataPath := frag.Data
		if !filepath.IsAbs(dataPath) {
			dataPath = filepath.Join(filepath.Dir(mapPath), dataPath)
		}
		raw, err = loadSegmentFile(dataPath)
		if err != nil {
			return nil, &document.ConfigError{Msg: fmt.Sprintf("error loading segment data for %s", mapPath), Err: err}
		}
	case len(frag.Lines) > 0:
		raw = make([][4]float64, 0, len(frag.Lines))
		for i, line := range frag.Lines {
			if len(line) != 4 {
				return nil, document.Errorf("invalid line index=%d in %s, must have 4 numbers", i, mapPath)
			}
			raw = append(raw, [4]float64{line[0], line[1], line[2], line[3]})
		}
	default:
		return nil, document.Errorf("map %s has neither \"data\" nor \"lines\"", mapPath)
	}

	c, s := math.Cos(origin[2]), math.Sin(origin[2])
	out := make([][4]float64, len(raw))
	for i, seg := range raw {
		x1, y1 := seg[0]*frag.Scale, seg[1]*frag.Scale
		x2, y2 := seg[2]*frag.Scale, seg[3]*frag.Scale
		out[i] = [4]float64{
			origin[0] + c*x1 - s*y1, origin[1] + s*x1 + c*y1,
			origin[0] + c*x2 - s*y2, origin[1] + s*x2 + c*y2,
		}
	}
	return out, nil
}

// loadSegmentFile reads a plain-text segment file: one `x1 y1 x2 y2` record
// per line, blank lines and #-comments skipped.
func loadSegmentFile(path string) ([][4]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segments [][4]float64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("%s line %d: expected 4 values, got %d", path, lineNo, len(fields))
		}
		var seg [4]float64
		for i, fv := range fields {
			v, err := strconv.ParseFloat(fv, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
			}
			seg[i] = v
		}
		segments = append(segments, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

func (l *Layer) Name() string { return l.name }

// CollisionClass returns the layer's allocated collision class ID.
func (l *Layer) CollisionClass() int { return l.cfrID }

// Body returns the layer's single static body.
func (l *Layer) Body() *Body { return l.body }

// Color returns the RGBA display color declared for the layer, if any.
func (l *Layer) Color() [4]float64 { return l.color }

// DebugVisualize publishes the layer's body to v.
func (l *Layer) DebugVisualize(v Visualizer) {
	v.Publish("layer/"+l.name, []*Body{l.body})
}
