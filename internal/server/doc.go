// Package server implements the MCP (Model Context Protocol) server for shape
// recognition.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - shape_regions: List the foreground regions of an image
//   - shape_features: Compute the descriptor of the largest object
//   - shape_classify: Label the largest object from the feature database
//   - shape_learn: Add the largest object to the feature database
//   - shape_database: Summarize the feature database
//   - shape_render: Render a pipeline stage as a base64 PNG
//
// # Image Caching
//
// Decoded frames are cached by path, so a client that asks for regions,
// features and a render of one image decodes it once. Pass "reload": true
// when the file was overwritten since the last call.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A missing or empty feature database is a normal classification outcome and
// never an error.
//
// # Usage
//
//	srv := server.New(server.Options{Recognizer: rec, Store: store, Logger: logger})
//	if err := srv.Run(); err != nil {
//	    return err
//	}
package server
