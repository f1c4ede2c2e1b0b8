// Package transport carries line-protocol envelopes between clients and
// a composed invoker.
//
// Every carrier hands each inbound envelope to Dispatch, which decodes
// it, runs the "tool" method through the invoker and builds the
// response envelope:
//
//	{"protocolVersion":"2.0","id":1,"method":"tool","params":{"name":"add","input":{"a":5,"b":3}}}
//	{"protocolVersion":"2.0","id":1,"result":{"result":8}}
//
// # Stdio Transport
//
// Stdio reads one envelope per line from stdin and writes one response
// per line to stdout. Lines are handled concurrently, so responses may
// be written out of order:
//
//	t := transport.NewStdio()
//	err := t.Start(ctx, invoke)
//
// # HTTP Transport
//
// HTTP accepts one envelope per POST /mcp body and answers with one
// response. GET /health reports liveness. Request headers reach
// middleware as protocol.RequestMeta.
//
//	t := transport.NewHTTP(":8080", transport.WithShutdownTimeout(10*time.Second))
//
// # WebSocket Transport
//
// WebSocket treats each text message as one line and writes each
// response as one text message.
package transport
