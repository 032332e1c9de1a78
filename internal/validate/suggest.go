package validate

const maxSuggestions = 3

// typoDomains maps common misspellings straight to their intended domain.
var typoDomains = map[string]string{
	"gmial.com":    "gmail.com",
	"gmal.com":     "gmail.com",
	"gamil.com":    "gmail.com",
	"gmai.com":     "gmail.com",
	"gmail.co":     "gmail.com",
	"gmail.cm":     "gmail.com",
	"yaho.com":     "yahoo.com",
	"yahooo.com":   "yahoo.com",
	"yhaoo.com":    "yahoo.com",
	"hotmial.com":  "hotmail.com",
	"hotmal.com":   "hotmail.com",
	"hotmai.com":   "hotmail.com",
	"outlok.com":   "outlook.com",
	"outloook.com": "outlook.com",
	"iclould.com":  "icloud.com",
	"icloud.co":    "icloud.com",
}

// majorDomains is the fuzzy match target list for typos the table misses.
var majorDomains = []string{
	"gmail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"icloud.com",
	"aol.com",
	"protonmail.com",
	"live.com",
	"msn.com",
	"mail.com",
}

// suggestDomains returns up to three corrected addresses for a likely
// domain typo. Exact table hits win; otherwise domains within edit
// distance 2 are offered. A domain that is itself a major domain yields
// no suggestions.
func suggestDomains(local, domain string) []string {
	for _, m := range majorDomains {
		if domain == m {
			return nil
		}
	}

	if fixed, ok := typoDomains[domain]; ok {
		return []string{local + "@" + fixed}
	}

	var out []string
	for _, m := range majorDomains {
		if editDistance(domain, m) <= 2 {
			out = append(out, local+"@"+m)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// editDistance is the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
