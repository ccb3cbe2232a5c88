// Package mdns is the public façade over the codec, transport, responder
// registry, and security layers in the sibling internal packages: a
// Querier for discovering services and a Responder for advertising them,
// both built on RFC 6762/6763.
//
// Example:
//
//	q, err := mdns.NewQuerier()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//
//	entries, err := q.Query(ctx, "_http._tcp.local.")
package mdns
