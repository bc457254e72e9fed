package catalog

import (
	"strings"

	"github.com/tbourn/k-kitchen/internal/domain"
)

// CinemagraphEffect is the visual loop applied to cinemagraph posts.
const CinemagraphEffect = "steam"

// Sound is an ambient loop played behind a cinemagraph post.
type Sound struct {
	Name     string
	AudioURL string
	Effect   string
}

var (
	soundSizzle  = Sound{Name: "sizzle", AudioURL: "https://cdn.pixabay.com/download/audio/2022/03/10/audio_c8c8a73467.mp3", Effect: CinemagraphEffect}
	soundBoiling = Sound{Name: "boiling", AudioURL: "https://cdn.pixabay.com/download/audio/2022/03/15/audio_2238463092.mp3", Effect: CinemagraphEffect}
	soundSlurp   = Sound{Name: "slurp", AudioURL: "https://cdn.pixabay.com/download/audio/2022/02/07/audio_c0c88953d6.mp3", Effect: CinemagraphEffect}
)

// soundMap is checked in order; the first keyword found wins.
var soundMap = []struct {
	keywords []string
	sound    Sound
}{
	{[]string{"bbq", "grill", "pork", "meat", "sot-ddu-keong", "samgyeopsal"}, soundSizzle},
	{[]string{"stew", "soup", "jjigae", "ttukbaegi", "pot", "boiling"}, soundBoiling},
	{[]string{"ramen", "noodle", "ramyun", "buldak", "shin"}, soundSlurp},
}

// SoundFor finds an ambient sound for p by keyword search over its English
// name, category, and tags.
func SoundFor(p *domain.Product) (Sound, bool) {
	if p == nil {
		return Sound{}, false
	}
	terms := strings.ToLower(p.NameEn) + " " + string(p.Category) + " " + strings.Join(p.ProductTags, " ")
	for _, m := range soundMap {
		for _, kw := range m.keywords {
			if strings.Contains(terms, kw) {
				return m.sound, true
			}
		}
	}
	return Sound{}, false
}
