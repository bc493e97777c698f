package fitshdr

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// CardSize is the fixed length of a single header card.
	CardSize = 80

	// BlockSize is the FITS logical record size. Headers and data units
	// are always padded to a multiple of this.
	BlockSize = 2880
)

// Card is a single 80-byte header record, split into its parts.
// Value holds the raw value text (unquoted strings, T/F logicals,
// number literals). Commentary cards (COMMENT, HISTORY, blank keyword)
// carry their text in Comment and have an empty Value.
type Card struct {
	Keyword string
	Value   string
	Comment string

	// quoted records whether the value was a FITS character string.
	// Needed to re-encode the card the way it was read.
	quoted bool
}

// Header is an ordered list of cards up to (but not including) END.
type Header struct {
	cards []Card
}

// Cards returns the cards in file order.
func (h *Header) Cards() []Card {
	return h.cards
}

// Get returns the first card with the given keyword.
func (h *Header) Get(keyword string) (Card, bool) {
	for _, c := range h.cards {
		if c.Keyword == keyword {
			return c, true
		}
	}
	return Card{}, false
}

// Has reports whether the keyword is present.
func (h *Header) Has(keyword string) bool {
	_, ok := h.Get(keyword)
	return ok
}

// Str returns the keyword's value as a string.
// Quoted values are returned unquoted with trailing padding removed.
func (h *Header) Str(keyword string) (string, error) {
	c, ok := h.Get(keyword)
	if !ok {
		return "", fmt.Errorf("keyword %s not found", keyword)
	}
	return c.Value, nil
}

// Int returns the keyword's value as an integer.
func (h *Header) Int(keyword string) (int64, error) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, fmt.Errorf("keyword %s not found", keyword)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(c.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("keyword %s: not an integer: %q", keyword, c.Value)
	}
	return v, nil
}

// Float returns the keyword's value as a float64.
// FITS allows D as the exponent character; it is mapped to E.
func (h *Header) Float(keyword string) (float64, error) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, fmt.Errorf("keyword %s not found", keyword)
	}
	raw := strings.ReplaceAll(strings.TrimSpace(c.Value), "D", "E")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("keyword %s: not a number: %q", keyword, c.Value)
	}
	return v, nil
}

// Bool returns the keyword's value as a FITS logical (T or F).
func (h *Header) Bool(keyword string) (bool, error) {
	c, ok := h.Get(keyword)
	if !ok {
		return false, fmt.Errorf("keyword %s not found", keyword)
	}
	switch strings.TrimSpace(c.Value) {
	case "T":
		return true, nil
	case "F":
		return false, nil
	}
	return false, fmt.Errorf("keyword %s: not a logical: %q", keyword, c.Value)
}

// SetString sets a character-string keyword, replacing an existing card
// or appending a new one before END.
func (h *Header) SetString(keyword, value, comment string) {
	h.set(Card{Keyword: keyword, Value: value, Comment: comment, quoted: true})
}

// SetLogical sets a T/F keyword.
func (h *Header) SetLogical(keyword string, value bool, comment string) {
	v := "F"
	if value {
		v = "T"
	}
	h.set(Card{Keyword: keyword, Value: v, Comment: comment})
}

// SetInt sets an integer keyword.
func (h *Header) SetInt(keyword string, value int64, comment string) {
	h.set(Card{Keyword: keyword, Value: strconv.FormatInt(value, 10), Comment: comment})
}

// SetRaw sets a keyword from pre-formatted value text (number literals,
// expressions copied from another header). The value is written as-is.
func (h *Header) SetRaw(keyword, value, comment string) {
	h.set(Card{Keyword: keyword, Value: value, Comment: comment})
}

func (h *Header) set(card Card) {
	for i, c := range h.cards {
		if c.Keyword == card.Keyword && card.Keyword != "" &&
			card.Keyword != "COMMENT" && card.Keyword != "HISTORY" {
			if card.Comment == "" {
				card.Comment = c.Comment // keep the original comment on value-only edits
			}
			h.cards[i] = card
			return
		}
	}
	h.cards = append(h.cards, card)
}

// Delete removes the first card with the given keyword.
// Returns false if the keyword was not present.
func (h *Header) Delete(keyword string) bool {
	for i, c := range h.cards {
		if c.Keyword == keyword {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

// Parse reads header blocks from r until the END card.
// The reader is left positioned at the first data block.
func Parse(r io.Reader) (*Header, error) {
	h := &Header{}
	block := make([]byte, BlockSize)

	for {
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("read header block: %w", err)
		}

		for off := 0; off < BlockSize; off += CardSize {
			raw := string(block[off : off+CardSize])
			keyword := strings.TrimRight(raw[:8], " ")
			if keyword == "END" {
				return h, nil
			}
			h.cards = append(h.cards, parseCard(keyword, raw))
		}
	}
}

// parseCard splits a raw 80-byte card into keyword, value, and comment.
func parseCard(keyword, raw string) Card {
	// Commentary cards and cards without a value indicator carry
	// everything after the keyword as comment text.
	if keyword == "COMMENT" || keyword == "HISTORY" || keyword == "" || raw[8:10] != "= " {
		return Card{Keyword: keyword, Comment: strings.TrimRight(raw[8:], " ")}
	}

	body := raw[10:]

	// Character string: starts with a quote, '' escapes a quote.
	if strings.HasPrefix(strings.TrimLeft(body, " "), "'") {
		body = strings.TrimLeft(body, " ")
		var sb strings.Builder
		i := 1
		for i < len(body) {
			if body[i] == '\'' {
				if i+1 < len(body) && body[i+1] == '\'' {
					sb.WriteByte('\'')
					i += 2
					continue
				}
				i++
				break
			}
			sb.WriteByte(body[i])
			i++
		}
		comment := ""
		if idx := strings.Index(body[i:], "/"); idx >= 0 {
			comment = strings.TrimSpace(body[i+idx+1:])
		}
		return Card{
			Keyword: keyword,
			Value:   strings.TrimRight(sb.String(), " "),
			Comment: comment,
			quoted:  true,
		}
	}

	// Non-string value: everything up to the comment separator.
	value := body
	comment := ""
	if idx := strings.Index(body, "/"); idx >= 0 {
		value = body[:idx]
		comment = strings.TrimSpace(body[idx+1:])
	}
	return Card{Keyword: keyword, Value: strings.TrimSpace(value), Comment: comment}
}

// Encode serializes the header back to FITS blocks, including the END
// card and space padding to a BlockSize boundary.
func (h *Header) Encode() []byte {
	var sb strings.Builder
	for _, c := range h.cards {
		sb.WriteString(encodeCard(c))
	}
	sb.WriteString(padCard("END"))

	for sb.Len()%BlockSize != 0 {
		sb.WriteByte(' ')
	}
	return []byte(sb.String())
}

// encodeCard formats a card into exactly 80 bytes.
func encodeCard(c Card) string {
	if c.Keyword == "COMMENT" || c.Keyword == "HISTORY" || c.Keyword == "" {
		return padCard(fmt.Sprintf("%-8s%s", c.Keyword, c.Comment))
	}

	var value string
	if c.quoted {
		escaped := strings.ReplaceAll(c.Value, "'", "''")
		// Fixed format: strings are at least 8 characters inside quotes.
		value = fmt.Sprintf("'%-8s'", escaped)
		// An over-long string loses tail characters, never its closing
		// quote. Shortening the raw value keeps '' escapes intact.
		v := c.Value
		for 10+len(value) > CardSize && len(v) > 0 {
			v = v[:len(v)-1]
			value = fmt.Sprintf("'%-8s'", strings.ReplaceAll(v, "'", "''"))
		}
	} else {
		// Fixed format: value right-justified to column 30.
		value = fmt.Sprintf("%20s", c.Value)
	}

	card := fmt.Sprintf("%-8s= %s", c.Keyword, value)
	if c.Comment != "" {
		card += " / " + c.Comment
	}
	return padCard(card)
}

// padCard pads or truncates to the fixed card size.
func padCard(s string) string {
	if len(s) > CardSize {
		return s[:CardSize]
	}
	return s + strings.Repeat(" ", CardSize-len(s))
}
