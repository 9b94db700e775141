package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image stays cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Pipeline Stages
		{
			Name:        "image_edge_detect",
			Description: "Return the Canny edge map used for line detection as a base64 PNG (edges white on black).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "number",
						"description": "Low hysteresis threshold (default 100)",
						"default":     100,
					},
					"threshold_high": map[string]interface{}{
						"type":        "number",
						"description": "High hysteresis threshold (default 300)",
						"default":     300,
					},
					"blur_sigma": map[string]interface{}{
						"type":        "number",
						"description": "Optional Gaussian pre-blur radius (default 0, no blur)",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_detect_segments",
			Description: "Detect straight segments with the probabilistic Hough transform. Returns endpoints, length and angle of each segment.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"backend": map[string]interface{}{
						"type":        "string",
						"description": "Line detection backend: native (default) or opencv when built with gocv",
						"default":     "native",
					},
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Accumulator vote threshold (default 110)",
						"default":     110,
					},
					"min_line_length": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum segment extent in pixels (default 10)",
						"default":     10,
					},
					"max_line_gap": map[string]interface{}{
						"type":        "integer",
						"description": "Largest gap bridged within a segment (default 15)",
						"default":     15,
					},
				},
				"required": []string{"path"},
			},
		},

		// Vanishing Points
		{
			Name:        "vp_find",
			Description: "Estimate the vanishing point of an image. Returns the point, its consensus error and the supporting lines, or found=false with a reason.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"strategy": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"single", "multi"},
						"description": "single (default) or multi; multi needs a configured detector command and calibration_path",
						"default":     "single",
					},
					"calibration_path": map[string]interface{}{
						"type":        "string",
						"description": "Calibration file with a P2: projection row (multi strategy)",
					},
					"max_lines": map[string]interface{}{
						"type":        "integer",
						"description": "Keep at most this many of the longest lines (default 13)",
						"default":     13,
					},
					"min_angle": map[string]interface{}{
						"type":        "number",
						"description": "Smallest accepted line angle in degrees (default 10)",
						"default":     10,
					},
					"max_angle": map[string]interface{}{
						"type":        "number",
						"description": "Largest accepted line angle in degrees (default 80)",
						"default":     80,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "vp_annotate",
			Description: "Estimate the vanishing point and return the image annotated with the supporting lines and a marker at the point.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"draw_lines": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the supporting lines (default true)",
						"default":     true,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the annotated image to instead of returning base64",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return s.result(req.ID, map[string]interface{}{
		"tools": GetToolDefinitions(),
	})
}
