// Package mcp implements the Model Context Protocol (MCP) server for jotdown.
//
// The server exposes the thought store to AI assistants as tools:
//   - add_thought, edit_thought, delete_thoughts, list_thoughts
//   - search_thoughts: literal, semantic or answer retrieval
//   - extract_keywords: keyword cloud over every stored thought
//   - list_categories, add_category, update_category, archive_category
//   - generate_categories, update_profile: categories from the profile bio
//   - reindex: re-embed thoughts after an embedding provider change
//   - get_status: counts, embedding dimensions and database size
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. The server is started with:
//
//	jotdown serve
//
// Logs go to stderr; stdout carries protocol messages only.
//
// # Tool: add_thought
//
//	Request:
//	{
//	  "name": "add_thought",
//	  "arguments": {"content": "practice cello scales"}
//	}
//
//	Response:
//	{
//	  "thought": {
//	    "id": "6f1c...",
//	    "content": "practice cello scales",
//	    "category": "Music",
//	    "category_id": "a9e2...",
//	    "created_at": "2025-03-02T18:04:11Z",
//	    "updated_at": "2025-03-02T18:04:11Z"
//	  }
//	}
//
// A thought is always stored, even when the embedding backend is down. In
// that case it lands in "Other" and a later reindex repairs it.
//
// # Tool: search_thoughts
//
//	Request:
//	{
//	  "name": "search_thoughts",
//	  "arguments": {"query": "what am I practicing?", "mode": "answer"}
//	}
//
//	Response:
//	{
//	  "mode": "answer",
//	  "query": "what am I practicing?",
//	  "answer": "You have been practicing cello scales.",
//	  "sources": [{"rank": 1, "score": 0.82, "content": "practice cello scales", ...}],
//	  "keywords": ["practicing", "practice", "scales", "cello"],
//	  "duration_ms": 412
//	}
//
// Literal and semantic modes return "count" and "results" instead of
// "answer" and "sources". Literal queries are case-insensitive regular
// expressions; an empty query returns no results.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "jotdown": {
//	      "command": "/usr/local/bin/jotdown",
//	      "args": ["serve"],
//	      "env": {"OPENAI_API_KEY": "your-api-key"}
//	    }
//	  }
//	}
//
// # Error Handling
//
// Failures are returned as *MCPError with the underlying error in Data:
//   - -32602: Invalid params (missing arguments, empty or oversized content)
//   - -32603: Internal error (database and other unexpected failures)
//   - -32001: Thought or category not found
//   - -32002: Reindex already in progress
//   - -32003: Invalid literal pattern
//   - -32004: Embedding backend unavailable
//   - -32005: Generation backend unavailable
//   - -32006: Category already exists
//   - -32007: "Other" cannot be archived
//   - -32008: Profile bio is empty
package mcp
