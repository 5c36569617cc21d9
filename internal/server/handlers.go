package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/ironsheep/shapeid/internal/classify"
	"github.com/ironsheep/shapeid/internal/featuredb"
	"github.com/ironsheep/shapeid/internal/features"
	"github.com/ironsheep/shapeid/internal/imaging"
	"github.com/ironsheep/shapeid/internal/pipeline"
	"github.com/ironsheep/shapeid/internal/region"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "shape_classify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A missing or empty feature database is not an error: it is reported in the
// classification status.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Info("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "shape_regions":
		return s.handleShapeRegions(args)
	case "shape_features":
		return s.handleShapeFeatures(args)
	case "shape_classify":
		return s.handleShapeClassify(args)
	case "shape_learn":
		return s.handleShapeLearn(args)
	case "shape_database":
		return s.handleShapeDatabase(args)
	case "shape_render":
		return s.handleShapeRender(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path string `json:"path"`

	// Reload drops a cached decode of Path first, for files rewritten in place.
	Reload bool `json:"reload"`
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("missing arguments")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// loadPath decodes path arguments and loads the frame through the cache.
func (s *Server) loadPath(args json.RawMessage, a *pathArgs) (image.Image, error) {
	if err := decodeArgs(args, a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if imaging.FormatOf(a.Path) == "unknown" {
		return nil, fmt.Errorf("unsupported image format: %s (want PNG, JPEG or GIF)", a.Path)
	}
	if a.Reload {
		s.cache.Evict(a.Path)
	}
	return s.cache.Load(a.Path)
}

// analyze loads and analyzes a frame. The frame is returned even when it
// holds no object, together with pipeline.ErrNoObject.
func (s *Server) analyze(args json.RawMessage) (*pipeline.Frame, error) {
	var a pathArgs
	img, err := s.loadPath(args, &a)
	if err != nil {
		return nil, err
	}
	return s.recognizer.Analyze(img)
}

// === Region Handlers ===

type regionsResult struct {
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Threshold uint8          `json:"threshold"`
	Count     int            `json:"region_count"`
	ObjectID  int            `json:"object_id"`
	Regions   []region.Stats `json:"regions"`
}

func (s *Server) handleShapeRegions(args json.RawMessage) (interface{}, error) {
	frame, err := s.analyze(args)
	if err != nil && !errors.Is(err, pipeline.ErrNoObject) {
		return nil, err
	}

	b := frame.Stages.Cleaned.Bounds()
	return &regionsResult{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Threshold: frame.Stages.Level,
		Count:     frame.RegionCount,
		ObjectID:  frame.ObjectID,
		Regions:   frame.RegionStats(),
	}, nil
}

// === Feature Handlers ===

type featuresResult struct {
	ObjectID int                  `json:"object_id"`
	Area     int                  `json:"area"`
	Extent   string               `json:"extent"`
	Vector   features.Vector      `json:"vector"`
	Named    map[string]float64   `json:"named"`
	Rect     features.RotatedRect `json:"rect"`
	Centroid features.Point       `json:"centroid"`

	// OrientationDegrees is the axis of least central moment.
	OrientationDegrees float64 `json:"orientation_degrees"`
}

func newFeaturesResult(frame *pipeline.Frame, extent features.Extent) *featuresResult {
	shape := frame.Shape
	named := make(map[string]float64, features.Size)
	for i, name := range features.Names {
		named[name] = shape.Vector[i]
	}
	return &featuresResult{
		ObjectID:           frame.ObjectID,
		Area:               shape.Area,
		Extent:             extent.String(),
		Vector:             shape.Vector,
		Named:              named,
		Rect:               shape.Rect,
		Centroid:           features.Point{X: shape.CentroidX, Y: shape.CentroidY},
		OrientationDegrees: shape.Orientation * 180 / math.Pi,
	}
}

func (s *Server) handleShapeFeatures(args json.RawMessage) (interface{}, error) {
	frame, err := s.analyze(args)
	if err != nil {
		return nil, err
	}
	return newFeaturesResult(frame, s.recognizer.Config().Extent), nil
}

// === Classification Handlers ===

type classifyResult struct {
	// Object is false when the frame has no foreground; Result is then nil.
	Object   bool             `json:"object"`
	Method   string           `json:"method"`
	Result   *classify.Result `json:"result,omitempty"`
	Features *featuresResult  `json:"features,omitempty"`
}

func (s *Server) handleShapeClassify(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	img, err := s.loadPath(args, &a)
	if err != nil {
		return nil, err
	}

	cfg := s.recognizer.Config()
	out := &classifyResult{Method: string(cfg.Method)}

	frame, err := s.recognizer.Process(img)
	if errors.Is(err, pipeline.ErrNoObject) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	out.Object = true
	out.Result = frame.Result
	out.Features = newFeaturesResult(frame, cfg.Extent)
	return out, nil
}

type learnArgs struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

type learnResult struct {
	Label  string          `json:"label"`
	Vector features.Vector `json:"vector"`
	Path   string          `json:"database"`
}

func (s *Server) handleShapeLearn(args json.RawMessage) (interface{}, error) {
	var a learnArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := featuredb.ValidateLabel(a.Label); err != nil {
		return nil, err
	}

	frame, err := s.analyze(args)
	if err != nil {
		return nil, err
	}
	if err := s.recognizer.Learn(frame, a.Label); err != nil {
		return nil, err
	}

	return &learnResult{
		Label:  a.Label,
		Vector: frame.Shape.Vector,
		Path:   s.store.Path(),
	}, nil
}

// === Database Handlers ===

type databaseResult struct {
	Exists bool `json:"exists"`

	// Extent is the mode new queries are measured with. Entries recorded
	// with another mode have incomparable fill and aspect ratios.
	Extent string `json:"extent"`
	*featuredb.Summary
}

func (s *Server) handleShapeDatabase(_ json.RawMessage) (interface{}, error) {
	extent := s.recognizer.Config().Extent.String()
	entries, err := s.store.Entries()
	if errors.Is(err, featuredb.ErrNoFile) {
		return &databaseResult{Extent: extent, Summary: &featuredb.Summary{Path: s.store.Path()}}, nil
	}
	if err != nil {
		return nil, err
	}
	summary := featuredb.Summarize(s.store.Path(), entries)
	return &databaseResult{Exists: true, Extent: extent, Summary: &summary}, nil
}

// === Render Handlers ===

type renderArgs struct {
	Path string `json:"path"`
	View string `json:"view"`
}

type renderResult struct {
	View string `json:"view"`
	*imaging.EncodedImage
}

func (s *Server) handleShapeRender(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	view, err := pipeline.ParseView(a.View)
	if err != nil {
		return nil, err
	}

	pa := pathArgs{}
	img, err := s.loadPath(args, &pa)
	if err != nil {
		return nil, err
	}
	frame, err := s.recognizer.Process(img)
	if err != nil && !errors.Is(err, pipeline.ErrNoObject) {
		return nil, err
	}

	out, err := s.recognizer.Render(frame, view)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodePNG(out)
	if err != nil {
		return nil, err
	}
	return &renderResult{View: view.String(), EncodedImage: enc}, nil
}
