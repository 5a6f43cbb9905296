package domain

import "math/rand"

// CategoryPool is the list of prompts rounds draw from.
var CategoryPool = []string{
	"Animal",
	"City",
	"Country",
	"Food or drink",
	"Movie",
	"TV show",
	"Book",
	"Famous person",
	"Profession",
	"Brand",
	"Sport",
	"Hobby",
	"Thing in a kitchen",
	"Thing in a school",
	"Thing at the beach",
	"Piece of clothing",
	"Body part",
	"Musical instrument",
	"Song",
	"Board game",
	"Video game",
	"Cartoon character",
	"Superhero",
	"Fruit or vegetable",
	"Plant or tree",
	"Insect",
	"Something cold",
	"Something hot",
	"Something round",
	"Reason to be late",
	"Excuse to leave a party",
	"Thing you shout",
	"Thing in the sky",
	"Tool",
	"Toy",
	"Vehicle",
	"Language",
	"Historical figure",
	"Mythical creature",
	"Dessert",
}

// PickCategories selects count distinct prompts at random. The pool is
// large enough for any clamped categories-per-round value, but the count
// is capped defensively.
func PickCategories(count int) []string {
	if count <= 0 {
		return nil
	}
	if count > len(CategoryPool) {
		count = len(CategoryPool)
	}

	picked := make([]string, len(CategoryPool))
	copy(picked, CategoryPool)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})

	return picked[:count]
}
