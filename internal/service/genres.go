package service

import "sort"

// Genre is one entry of the static podcast genre table.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// podcastGenres is the Apple podcast directory genre table. Static data:
// the directory has not changed these ids in years, so they ship with the
// binary instead of being fetched.
var podcastGenres = map[int]string{
	26:   "Podcasts",
	1301: "Arts",
	1321: "Business",
	1303: "Comedy",
	1304: "Education",
	1483: "Fiction",
	1511: "Government",
	1512: "Health & Fitness",
	1487: "History",
	1305: "Kids & Family",
	1502: "Leisure",
	1310: "Music",
	1489: "News",
	1314: "Religion & Spirituality",
	1533: "Science",
	1324: "Society & Culture",
	1545: "Sports",
	1318: "Technology",
	1488: "True Crime",
	1309: "TV & Film",
}

// GenreExists reports whether id is a known podcast genre.
func GenreExists(id int) bool {
	_, ok := podcastGenres[id]
	return ok
}

// GenreList returns the genre table sorted by id.
func GenreList() []Genre {
	genres := make([]Genre, 0, len(podcastGenres))
	for id, name := range podcastGenres {
		genres = append(genres, Genre{ID: id, Name: name})
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].ID < genres[j].ID })
	return genres
}
