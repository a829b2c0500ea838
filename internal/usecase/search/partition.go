package search

import "github.com/kailas-cloud/dishdex/internal/domain/search/result"

// Partition splits a ranked list into results sharing ranked[0]'s group and the rest.
// Input order is preserved within each side.
func Partition(ranked []result.Result) (sameGroup, related []result.Result) {
	sameGroup = []result.Result{}
	related = []result.Result{}
	if len(ranked) == 0 {
		return sameGroup, related
	}
	ref := ranked[0].Group()
	for _, r := range ranked {
		if r.Group() == ref {
			sameGroup = append(sameGroup, r)
		} else {
			related = append(related, r)
		}
	}
	return sameGroup, related
}
