package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/vanishing-point/internal/calib"
	"github.com/ironsheep/vanishing-point/internal/config"
	"github.com/ironsheep/vanishing-point/internal/detection"
	"github.com/ironsheep/vanishing-point/internal/imaging"
	"github.com/ironsheep/vanishing-point/internal/vanishing"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "vp_find").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return s.result(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": mustMarshalJSON(result),
			},
		},
	})
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/detection/vanishing function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Pipeline Stages
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)
	case "image_detect_segments":
		return s.handleImageDetectSegments(args)

	// Vanishing Points
	case "vp_find":
		return s.handleVPFind(args)
	case "vp_annotate":
		return s.handleVPAnnotate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response. Empty data is omitted.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Pipeline Stage Handlers ===

type imageEdgeDetectArgs struct {
	Path          string  `json:"path"`
	ThresholdLow  float64 `json:"threshold_low"`
	ThresholdHigh float64 `json:"threshold_high"`
	BlurSigma     float64 `json:"blur_sigma"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p := s.cfg.CannyParams()
	if a.ThresholdLow > 0 {
		p.Low = a.ThresholdLow
	}
	if a.ThresholdHigh > 0 {
		p.High = a.ThresholdHigh
	}
	if a.BlurSigma > 0 {
		p.BlurSigma = a.BlurSigma
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, p)
}

type imageDetectSegmentsArgs struct {
	Path          string `json:"path"`
	Backend       string `json:"backend"`
	Threshold     int    `json:"threshold"`
	MinLineLength int    `json:"min_line_length"`
	MaxLineGap    int    `json:"max_line_gap"`
}

func (s *Server) handleImageDetectSegments(args json.RawMessage) (interface{}, error) {
	var a imageDetectSegmentsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Backend == "" {
		a.Backend = s.cfg.Hough.Backend
	}
	backend, err := detection.Lookup(a.Backend)
	if err != nil {
		return nil, err
	}
	p := s.cfg.HoughParams()
	if a.Threshold > 0 {
		p.Threshold = a.Threshold
	}
	if a.MinLineLength > 0 {
		p.MinLineLength = a.MinLineLength
	}
	if a.MaxLineGap > 0 {
		p.MaxLineGap = a.MaxLineGap
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return detection.DetectLines(backend, img, s.cfg.CannyParams(), p)
}

// === Vanishing Point Handlers ===

type vpFindArgs struct {
	Path            string   `json:"path"`
	Strategy        string   `json:"strategy"`
	CalibrationPath string   `json:"calibration_path"`
	MaxLines        int      `json:"max_lines"`
	MinAngle        *float64 `json:"min_angle"`
	MaxAngle        *float64 `json:"max_angle"`
}

// VPFindResult is the vp_find and vp_annotate answer. Reason explains a
// missing vanishing point.
type VPFindResult struct {
	Found      bool              `json:"found"`
	Strategy   string            `json:"strategy"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Points     []vanishing.Point `json:"points,omitempty"`
	Error      float64           `json:"error,omitempty"`
	Lines      []vanishing.Line  `json:"lines,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	OutputPath string            `json:"output_path,omitempty"`
	// ImageBase64 is the annotated PNG (vp_annotate without output_path).
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

func (s *Server) strategyFor(a vpFindArgs) (vanishing.Strategy, error) {
	cfg := *s.cfg
	if a.Strategy != "" {
		cfg.Batch.Strategy = a.Strategy
	}
	if a.MaxLines > 0 {
		cfg.Filter.MaxLines = a.MaxLines
	}
	if a.MinAngle != nil {
		cfg.Filter.MinAngle = *a.MinAngle
	}
	if a.MaxAngle != nil {
		cfg.Filter.MaxAngle = *a.MaxAngle
	}
	if cfg.Batch.Strategy == config.StrategyMulti && cfg.Multi.Command == "" {
		return nil, fmt.Errorf("the multi strategy needs multi.command in the server configuration")
	}
	if err := cfg.FilterPolicy().Validate(); err != nil {
		return nil, err
	}
	return cfg.Strategy()
}

// estimate runs the requested strategy. Not-found outcomes are reported in
// the result rather than as errors.
func (s *Server) estimate(a vpFindArgs) (*VPFindResult, *vanishing.Estimate, error) {
	strategy, err := s.strategyFor(a)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}
	frame := vanishing.Frame{Path: a.Path, Image: img}
	if a.CalibrationPath != "" {
		c, err := calib.Load(a.CalibrationPath)
		if err != nil {
			return nil, nil, err
		}
		frame.Calibration = c
	}

	b := img.Bounds()
	res := &VPFindResult{Strategy: strategy.Name(), Width: b.Dx(), Height: b.Dy()}
	est, err := strategy.Estimate(context.Background(), frame)
	if vanishing.IsNotFound(err) {
		res.Reason = err.Error()
		return res, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	res.Found = true
	res.Points = est.Points
	res.Error = est.Error
	res.Lines = est.Lines
	return res, est, nil
}

func (s *Server) handleVPFind(args json.RawMessage) (interface{}, error) {
	var a vpFindArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, _, err := s.estimate(a)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type vpAnnotateArgs struct {
	vpFindArgs
	DrawLines  *bool  `json:"draw_lines"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleVPAnnotate(args json.RawMessage) (interface{}, error) {
	var a vpAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	drawLines := s.cfg.Render.DrawLines
	if a.DrawLines != nil {
		drawLines = *a.DrawLines
	}
	style, err := s.cfg.Style()
	if err != nil {
		return nil, err
	}

	res, est, err := s.estimate(a.vpFindArgs)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return res, nil
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	annotated := vanishing.DrawEstimate(img, est, style, drawLines)

	if a.OutputPath != "" {
		if err := imaging.Save(a.OutputPath, annotated); err != nil {
			return nil, err
		}
		res.OutputPath = a.OutputPath
		return res, nil
	}
	data, err := imaging.EncodePNGBase64(annotated)
	if err != nil {
		return nil, err
	}
	res.ImageBase64 = data
	res.MimeType = "image/png"
	return res, nil
}
