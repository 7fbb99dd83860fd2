// Package ollama provides a client for a local Ollama server, used to caption
// screenshots with a vision model.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.DescribeImage: send a prompt plus one image, receive the reply text.
// Client.ListModels: list models pulled on the server.
//
// # Wire Format
//
// Chat requests go to POST /api/chat with stream=false and images as base64
// strings on the user message. Only message.content is read from the reply;
// an absent message or blank content is an error.
//
// # Retry Behaviour
//
// None. Each call is a single attempt bounded by the HTTP client timeout
// (120s by default, vision models on CPU are slow). Callers decide whether a
// failure is worth another try.
package ollama
