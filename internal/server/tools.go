package server

import "github.com/ironsheep/shapeid/internal/pipeline"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file (PNG, JPEG or GIF)",
	}
}

func reloadProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Decode the file again instead of using the cached frame (for files overwritten in place)",
		"default":     false,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "shape_regions",
			Description: "Threshold an image and list its 8-connected foreground regions with area, bounding box and centroid. The largest region is the object used by the other tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"reload": reloadProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "shape_features",
			Description: "Compute the 9-value shape descriptor of the largest object in an image: fill ratio, aspect ratio and the seven Hu moment invariants, plus its oriented bounding rectangle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"reload": reloadProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "shape_classify",
			Description: "Classify the largest object in an image against the feature database. Returns the label, or a status when the database is missing, empty, or the object matches nothing closely enough.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"reload": reloadProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "shape_learn",
			Description: "Append the descriptor of the largest object in an image to the feature database under a label.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"reload": reloadProperty(),
					"label": map[string]interface{}{
						"type":        "string",
						"description": "Class name: a single word without whitespace",
					},
				},
				"required": []string{"path", "label"},
			},
		},
		{
			Name:        "shape_database",
			Description: "Summarize the feature database: entry count, entries per label and per-feature standard deviations.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "shape_render",
			Description: "Render one stage of the recognition pipeline as a base64 PNG: the annotated frame, the raw input, the threshold or cleaned binary image, the colour-coded region map, or the annotated object cropped to its bounds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"reload": reloadProperty(),
					"view": map[string]interface{}{
						"type":        "string",
						"description": "Pipeline stage to render",
						"enum":        pipeline.ViewNames(),
						"default":     "annotated",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
