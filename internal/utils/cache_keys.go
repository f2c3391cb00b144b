package utils

import "strconv"

// BlogsListPrefix is shared by every cached blog list page so a write can drop them all.
const BlogsListPrefix = "blogs:list:v1:"

func BuildBlogsListCacheKey(limit int, cursor string) string {
	return BlogsListPrefix + "limit=" + strconv.Itoa(limit) + ":cursor=" + cursor
}

func BuildBlogCacheKey(id string) string {
	return "blogs:item:v1:" + id
}
