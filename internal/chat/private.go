package chat

// PrivateChannelIndex keeps one log per pair of users. Logs are not capped.
type PrivateChannelIndex struct {
	logs map[string][]*Message
}

func NewPrivateChannelIndex() *PrivateChannelIndex {
	return &PrivateChannelIndex{logs: make(map[string][]*Message)}
}

// CanonicalKey is the same for (a, b) and (b, a).
func CanonicalKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (p *PrivateChannelIndex) Append(a, b string, msg *Message) {
	key := CanonicalKey(a, b)
	p.logs[key] = append(p.logs[key], msg)
}

// History is oldest first and empty, not nil, for a pair that never talked.
func (p *PrivateChannelIndex) History(a, b string) []*Message {
	log := p.logs[CanonicalKey(a, b)]
	out := make([]*Message, len(log))
	copy(out, log)
	return out
}

func (p *PrivateChannelIndex) Len() int { return len(p.logs) }
