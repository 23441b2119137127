package crossref

// NormalizeISSN strips the hyphen from "1234-5678". Anything that is neither
// eight characters nor hyphenated nine is returned unchanged with ok false.
func NormalizeISSN(issn string) (string, bool) {
	switch {
	case len(issn) == 8:
		return issn, true
	case len(issn) == 9 && issn[4] == '-':
		return issn[:4] + issn[5:], true
	default:
		return issn, false
	}
}
