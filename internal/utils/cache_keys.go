package utils

import "strconv"

// bump the version when the cached response shape changes
const usersListCacheVersion = "v1"

func BuildUsersListCacheKey(page, pageSize int) string {
	return "users:list:" + usersListCacheVersion +
		":page=" + strconv.Itoa(page) +
		":size=" + strconv.Itoa(pageSize)
}
