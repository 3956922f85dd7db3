// Package reference decodes account reference strings of the form
// "<member number><category suffix>", e.g. "JM1023T" for a tithe from member
// JM1023. Unknown or missing suffixes decode to the catch-all category rather
// than failing.
package reference

import (
	"strings"

	contributiondomain "github.com/kanisahq/kanisa/internal/contribution/domain"
)

// MultiSuffix marks a reference whose amount is split across categories via a
// separately supplied breakdown.
const MultiSuffix = "MULTI"

var suffixCategories = []struct {
	suffix   string
	category string
}{
	{"TG", contributiondomain.TypeThanksgiving},
	{"FF", contributiondomain.TypeFirstFruit},
	{"OT", contributiondomain.TypeOthers},
	{"T", contributiondomain.TypeTithe},
	{"O", contributiondomain.TypeOffering},
	{"D", contributiondomain.TypeDevelopment},
}

// Decoded is the result of parsing one account reference.
type Decoded struct {
	MemberNumber string
	Category     string
	// Multi is set when the reference carries the multi-category marker; the
	// category is then only a fallback for when no breakdown is available.
	Multi bool
}

// Decode strips a known category suffix from the reference to recover the
// member's public identifier. References without a recognizable suffix decode
// with the whole string as the member number and the catch-all category.
func Decode(accountReference string) Decoded {
	ref := strings.TrimSpace(accountReference)
	upper := strings.ToUpper(ref)

	if strings.HasSuffix(upper, MultiSuffix) && len(ref) > len(MultiSuffix) {
		return Decoded{
			MemberNumber: strings.TrimSpace(ref[:len(ref)-len(MultiSuffix)]),
			Category:     contributiondomain.TypeOthers,
			Multi:        true,
		}
	}

	for _, sc := range suffixCategories {
		if strings.HasSuffix(upper, sc.suffix) && len(ref) > len(sc.suffix) {
			return Decoded{
				MemberNumber: strings.TrimSpace(ref[:len(ref)-len(sc.suffix)]),
				Category:     sc.category,
			}
		}
	}

	return Decoded{
		MemberNumber: ref,
		Category:     contributiondomain.TypeOthers,
	}
}
