package sequence

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// ReturnPrefix marks numbers issued for return records.
const ReturnPrefix = "RET"

// Codes avoid 0/O and 1/I so clerks can read them back over the counter.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const numberSuffixLength = 6

// Generator issues human-readable document numbers and store-credit codes.
type Generator struct {
	now func() time.Time
}

// NewGenerator returns a generator stamped with the current date.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// ReturnNumber issues a return-record number, e.g. RET-20260826-4F7K2Q.
func (g *Generator) ReturnNumber() (string, error) {
	return g.number(ReturnPrefix)
}

// OrderNumber issues an order number with the given prefix, e.g. EXC-20260826-P8M3RW.
func (g *Generator) OrderNumber(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("order number prefix is required")
	}
	return g.number(prefix)
}

// StoreCreditCode issues a code like SC-4F7K-2QP8-M3RW. Uniqueness is enforced
// by the caller against the store_credits table.
func (g *Generator) StoreCreditCode() (string, error) {
	raw, err := randomToken(12)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SC-%s-%s-%s", raw[0:4], raw[4:8], raw[8:12]), nil
}

func (g *Generator) number(prefix string) (string, error) {
	suffix, err := randomToken(numberSuffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", prefix, g.now().UTC().Format("20060102"), suffix), nil
}

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
