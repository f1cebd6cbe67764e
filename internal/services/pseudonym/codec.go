package pseudonym

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"golang.org/x/crypto/blake2b"
)

const (
	keySize    = 16
	digestSize = 8
)

// Codec maps entity ids to opaque tokens for prompt building and back
// for response decoding. Tokens are keyed BLAKE2b digests, so the same
// id always yields the same token within one codec but tokens from
// different runs never correlate. Safe for concurrent use.
type Codec struct {
	mu          sync.RWMutex
	key         []byte
	agendas     map[string]int64
	politicians map[string]int64
}

// NewCodec creates a codec with a fresh random session key.
func NewCodec() (*Codec, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}

	return &Codec{
		key:         key,
		agendas:     make(map[string]int64),
		politicians: make(map[string]int64),
	}, nil
}

// AgendaToken returns the token for an agenda item id and registers it
// for reverse lookup.
func (c *Codec) AgendaToken(id int64) string {
	token := c.token(fmt.Sprintf("agenda_%d", id))

	c.mu.Lock()
	c.agendas[token] = id
	c.mu.Unlock()

	return token
}

// PoliticianToken returns the token for a politician id and registers it
// for reverse lookup.
func (c *Codec) PoliticianToken(id int64) string {
	token := c.token(fmt.Sprintf("politician_%d", id))

	c.mu.Lock()
	c.politicians[token] = id
	c.mu.Unlock()

	return token
}

// AgendaID resolves a token back to the agenda item id it was issued for.
func (c *Codec) AgendaID(token string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.agendas[token]
	return id, ok
}

// PoliticianID resolves a token back to the politician id it was issued
// for.
func (c *Codec) PoliticianID(token string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.politicians[token]
	return id, ok
}

// idAttrRegex matches id="..." and pid="..." attributes in provider
// responses.
var idAttrRegex = regexp.MustCompile(`\b(id|pid)="([^"]*)"`)

// RewriteIDAttributes replaces tokens inside id="..." and pid="..."
// attributes with the real numeric ids. Unknown tokens and empty values
// are left untouched.
func (c *Codec) RewriteIDAttributes(s string) string {
	return idAttrRegex.ReplaceAllStringFunc(s, func(match string) string {
		groups := idAttrRegex.FindStringSubmatch(match)
		attr, token := groups[1], groups[2]
		if token == "" {
			return match
		}

		if id, ok := c.PoliticianID(token); ok {
			return attr + `="` + strconv.FormatInt(id, 10) + `"`
		}
		if id, ok := c.AgendaID(token); ok {
			return attr + `="` + strconv.FormatInt(id, 10) + `"`
		}
		return match
	})
}

// token computes the keyed digest for a label. The key length is fixed
// at construction, so hashing cannot fail.
func (c *Codec) token(label string) string {
	h, _ := blake2b.New(digestSize, c.key)
	h.Write([]byte(label))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
