package expression

import "strings"

// Preset expression names shared by VRM 1.0 avatars.
const (
	Happy      = "happy"
	Angry      = "angry"
	Sad        = "sad"
	Relaxed    = "relaxed"
	Surprised  = "surprised"
	Aa         = "aa"
	Ih         = "ih"
	Ou         = "ou"
	Ee         = "ee"
	Oh         = "oh"
	Blink      = "blink"
	BlinkLeft  = "blinkLeft"
	BlinkRight = "blinkRight"
	Neutral    = "neutral"
)

var Presets = []string{
	Happy, Angry, Sad, Relaxed, Surprised,
	Aa, Ih, Ou, Ee, Oh,
	Blink, BlinkLeft, BlinkRight, Neutral,
}

// VRM 0.x blend shape group presets and their 1.0 names.
var legacyPresets = map[string]string{
	"joy":       Happy,
	"angry":     Angry,
	"sorrow":    Sad,
	"fun":       Relaxed,
	"surprised": Surprised,
	"a":         Aa,
	"i":         Ih,
	"u":         Ou,
	"e":         Ee,
	"o":         Oh,
	"blink":     Blink,
	"blink_l":   BlinkLeft,
	"blink_r":   BlinkRight,
	"neutral":   Neutral,
}

// Normalize maps VRM 0.x preset names onto their VRM 1.0 equivalents.
// Preset names are matched case-insensitively; custom names pass through.
func Normalize(name string) string {
	lower := strings.ToLower(name)
	if preset, ok := legacyPresets[lower]; ok {
		return preset
	}
	for _, p := range Presets {
		if strings.ToLower(p) == lower {
			return p
		}
	}
	return name
}
