package usecase

import (
	"regexp"
	"sort"
	"strings"

	emaildto "mailiq-backend/internal/email/dto"
)

// addressPattern prefers an angle-bracket-delimited address over a bare
// token, mirroring how senders appear in From headers
// ("Name <addr@host>" or just "addr@host").
var addressPattern = regexp.MustCompile(`<(.+?)>|([^\s<>]+@[^\s<>]+)`)

// extractEmailAddress pulls the bare address out of a From header value.
// Unmatched input is returned as-is so odd senders still group together.
func extractEmailAddress(from string) string {
	if from == "" {
		return "Unknown"
	}
	m := addressPattern.FindStringSubmatch(from)
	if m == nil {
		return from
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// extractDomain pulls the domain suffix of the sender's address.
func extractDomain(from string) string {
	if from == "" {
		return "Unknown"
	}
	m := addressPattern.FindStringSubmatch(from)
	if m == nil {
		return "Unknown"
	}
	addr := m[1]
	if addr == "" {
		addr = m[2]
	}
	if i := strings.Index(addr, "@"); i >= 0 && i+1 < len(addr) {
		return addr[i+1:]
	}
	return "Unknown"
}

func sortDomainStats(stats []emaildto.DomainStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].EmailCount != stats[j].EmailCount {
			return stats[i].EmailCount > stats[j].EmailCount
		}
		return stats[i].Domain < stats[j].Domain
	})
}

func sortFromStats(stats []emaildto.FromStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].From < stats[j].From
	})
}
