// Package router decides which providers to try for a ticker and in what
// order.
package router

import "financeapi/internal/provider"

// SelectOrder maps a ticker to an ordered provider chain using its length
// as a crude ISIN heuristic:
//
//   - 12 characters (ISIN-shaped): all fund-oriented providers before the
//     general-purpose one.
//   - 10 characters (Morningstar code): Morningstar only.
//   - anything else: Yahoo only.
//
// The rule is a pure function of the string length; no identifier
// validation is attempted.
func SelectOrder(ticker string) []provider.Tag {
	switch len(ticker) {
	case 12:
		return []provider.Tag{provider.Morningstar, provider.FT, provider.Investing, provider.Yahoo}
	case 10:
		return []provider.Tag{provider.Morningstar}
	default:
		return []provider.Tag{provider.Yahoo}
	}
}
