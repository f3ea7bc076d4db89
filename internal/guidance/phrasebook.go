package guidance

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLanguage is returned for a language without a phrasebook.
var ErrUnknownLanguage = errors.New("unknown voice language")

// Phrasebook renders announcements in one language. remaining is the
// distance to the turn in meters.
type Phrasebook interface {
	Language() string
	Turn(remaining float64, dir Direction) string
	Arrival() string
}

// PhrasebookFor returns the phrasebook for an IETF language tag ("en",
// "ja", "en-US"). An empty tag selects English.
func PhrasebookFor(lang string) (Phrasebook, error) {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(lang)), "-")
	switch base {
	case "", "en":
		return English{}, nil
	case "ja":
		return Japanese{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
}

// English phrasing.
type English struct{}

func (English) Language() string { return "en" }

func (English) Arrival() string { return "You have arrived at your destination" }

func (English) Turn(remaining float64, dir Direction) string {
	n := int(remaining)
	action := "turn " + string(dir)
	if dir == UTurn {
		action = "make a U-turn"
	}

	switch {
	case remaining > 200:
		return fmt.Sprintf("In %d meters, %s", n, action)
	case remaining > 100:
		return fmt.Sprintf("In about %d meters, %s", n, action)
	case remaining > 50:
		return fmt.Sprintf("%d meters ahead, %s", n, action)
	case dir == UTurn:
		return "Make a U-turn"
	default:
		return fmt.Sprintf("At the next intersection, turn %s", dir)
	}
}

// Japanese phrasing.
type Japanese struct{}

func (Japanese) Language() string { return "ja" }

func (Japanese) Arrival() string { return "目的地に到着しました" }

func (Japanese) Turn(remaining float64, dir Direction) string {
	n := int(remaining)
	word := japaneseDirection(dir)

	switch {
	case remaining > 200:
		return fmt.Sprintf("%dメートル先を%sしてください", n, word)
	case remaining > 100:
		return fmt.Sprintf("約%dメートル先を%s", n, word)
	case remaining > 50:
		return fmt.Sprintf("%dメートル先を%s", n, word)
	case dir == UTurn:
		return "Uターンしてください"
	default:
		return fmt.Sprintf("次の交差点を%sしてください", word)
	}
}

func japaneseDirection(dir Direction) string {
	switch dir {
	case Right:
		return "右折"
	case UTurn:
		return "Uターン"
	default:
		return "左折"
	}
}
