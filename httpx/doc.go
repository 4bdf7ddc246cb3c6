// Package httpx executes single HTTP/1.1 request/response calls over a
// dedicated connection per call, streaming both entities.
//
// Highlights
//   - Controller: resolves the target, obtains a socket from a
//     ConnectionFactory, writes the head and entity, parses the
//     response head and hands back a live EntityStream.
//   - Framing: Content-Length, chunked and close-delimited bodies,
//     chosen for requests from the declared length and for responses
//     from the received headers only.
//   - Failures never escape as errors from Execute; they come back as
//     connector statuses (1001 communication, 1002 internal) whose
//     Cause is a *CallError.
//   - Observability: plug-in Logger and Meter interfaces.
//
// Quick start:
//
//	ctl := httpx.NewController(&httpx.DialerFactory{TCPNoDelay: true})
//	req, _ := httpx.NewRequest("GET", "http://127.0.0.1:8080/", nil)
//	res := ctl.Execute(context.Background(), req)
//	if err := res.Status.Err(); err != nil { log.Fatal(err) }
//	defer res.Body.Close()
//	b, _ := io.ReadAll(res.Body)
//	fmt.Println(res.Status, string(b))
package httpx
