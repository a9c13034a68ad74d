package schools

import "github.com/gosimple/slug"

// Slugify lowercases name and joins its words with hyphens. Apostrophes are
// dropped, so "St. Mary's" becomes "st-marys".
func Slugify(name string) string {
	return slug.Make(name)
}
