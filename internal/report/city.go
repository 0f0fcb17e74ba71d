// Package report builds the grouped city statistics over the whole user set.
package report

import (
	"sort"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
)

// GroupByCity runs group(city) -> aggregate(avg age, count, projection) ->
// sort(count desc) over an in-memory record set. Stores that can push the
// grouping down to the database return the same shape from their own query.
func GroupByCity(users []user.User) []user.CityStat {
	ordered := make([]user.User, len(users))
	copy(ordered, users)

	// members of a group keep insertion order
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	type bucket struct {
		stat   user.CityStat
		ageSum int
	}

	buckets := make(map[string]*bucket)
	keys := make([]string, 0)

	for _, u := range ordered {
		key := u.Address.City

		b, ok := buckets[key]
		if !ok {
			b = &bucket{stat: user.CityStat{City: cityKey(key), Users: make([]user.UserSummary, 0, 1)}}
			buckets[key] = b
			keys = append(keys, key)
		}

		b.ageSum += u.Age
		b.stat.TotalUsers++
		b.stat.Users = append(b.stat.Users, user.UserSummary{
			FullName: u.FullName(),
			City:     cityKey(u.Address.City),
			Gender:   u.Gender,
			Age:      u.Age,
		})
	}

	out := make([]user.CityStat, 0, len(keys))

	for _, k := range keys {
		b := buckets[k]
		b.stat.AverageAge = float64(b.ageSum) / float64(b.stat.TotalUsers)
		out = append(out, b.stat)
	}

	SortGroups(out)

	return out
}

// SortGroups orders groups by size, largest first. Equal sizes fall back to
// city name in byte order with the no-city group last, so repeated calls on
// unchanged data return the same order.
func SortGroups(groups []user.CityStat) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]

		if a.TotalUsers != b.TotalUsers {
			return a.TotalUsers > b.TotalUsers
		}

		switch {
		case a.City == nil && b.City == nil:
			return false
		case a.City == nil:
			return false
		case b.City == nil:
			return true
		default:
			return *a.City < *b.City
		}
	})
}

func cityKey(city string) *string {
	if city == "" {
		return nil
	}

	return &city
}
