package structs

import (
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// Token is an opaque, comparable identity for a server- or client-side
// object that crosses the transport: activity tokens, service tokens,
// endpoint tokens, and connection tokens all share this type so record
// lookups and transport dispatch use one equality rule throughout.
type Token string

// NewToken mints a process-lifetime-unique token. uuid generation is
// delegated to go-uuid rather than hand-rolled, matching how the teacher
// mints allocation and evaluation IDs.
func NewToken(kind string) Token {
	id, err := uuid.GenerateUUID()
	if err != nil {
		// go-uuid only fails if crypto/rand is exhausted; fall back to a
		// counter-free, still-unique-enough token rather than bubbling a
		// transport error out of record construction.
		return Token(fmt.Sprintf("%s-fallback-%p", kind, &id))
	}
	return Token(fmt.Sprintf("%s:%s", kind, id))
}

func (t Token) String() string { return string(t) }

// EndpointToken identifies a client process's transport endpoint. It is
// handed back by the transport shim on attach and reused as the
// AppRecord's address for every outbound schedule call.
type EndpointToken string

func (e EndpointToken) String() string { return string(e) }
