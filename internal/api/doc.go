// Package api defines the wire types shared by the HTTP server, the IPC
// socket, and the CLI, plus the WebSocket client used to follow question
// changes.
//
// # Key Types
//
// Question/Answer: aliases of the questions package values. Their JSON shape
// is {"generic": {...}, "with_password": {...}} in both directions.
//
// ChangeEvent: a {"type": "QuestionsChanged"} frame pushed on /api/ws.
//
// ErrorResponse and QuestionsError: every failure of the question service is
// rendered as {"error": "Question service error: <cause>"}.
//
// DaemonStatus: runtime information reported by /api/status and the IPC
// Status call.
//
// # Design Notes
//
// Question DTOs keep the snake_case tags the installer's web clients already
// consume. Status DTOs use camelCase like every other runtime payload.
package api
