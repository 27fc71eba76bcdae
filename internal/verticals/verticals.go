// Package verticals defines the product verticals the discovery pipeline
// researches, along with their search queries, brand keywords, and
// bag-generation templates.
package verticals

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Vertical identifies a product category the pipeline searches within.
type Vertical string

// Known verticals.
const (
	Golf        Vertical = "golf"
	Tech        Vertical = "tech"
	Photography Vertical = "photography"
	EDC         Vertical = "edc"
	Fitness     Vertical = "fitness"
)

// Config holds the search configuration for one vertical.
type Config struct {
	Name        Vertical
	DisplayName string

	// TrendingQueries target popular/viral content ("what's in my bag" style).
	TrendingQueries []string
	// ReleaseQueries target recent product launches.
	ReleaseQueries []string
	// ChannelIDs are known reliable channels for this vertical.
	ChannelIDs []string
	// Hashtags drive the hashtag-page research lane.
	Hashtags []string

	// ProductTypes and BrandKeywords are hints passed to text extraction.
	ProductTypes  []string
	BrandKeywords []string

	// BagTitleTemplate seeds generated bag titles.
	BagTitleTemplate string

	// MinViewCount filters out low-traction videos.
	MinViewCount int64

	// GapWeight scales gap priority; verticals with thinner library
	// coverage carry a higher weight.
	GapWeight float64
}

var registry = map[Vertical]Config{
	Golf: {
		Name:        Golf,
		DisplayName: "Golf",
		TrendingQueries: []string{
			"what's in my golf bag",
			"what's in the bag pga tour",
			"witb golf",
			"best golf driver review",
			"golf iron comparison",
			"best putter",
			"best golf wedges",
			"golf ball comparison test",
		},
		ReleaseQueries: []string{
			"new golf clubs",
			"titleist release",
			"taylormade launch",
			"callaway new",
			"ping announcement",
			"new driver release golf",
		},
		ChannelIDs: []string{
			"UCfx0cxGmGPBiAKHGs-lqLmQ",
			"UCT2XVgCaJDHN9P5aJF9fFgg",
			"UC-5WgW5f6bnVNOdSWcBt56g",
		},
		Hashtags: []string{"golfbag", "golfgear", "whatsinthebag", "witb"},
		ProductTypes: []string{
			"drivers", "fairway woods", "hybrids", "irons", "wedges",
			"putters", "golf balls", "golf bags", "rangefinders", "golf shoes",
		},
		BrandKeywords: []string{
			"Titleist", "TaylorMade", "Callaway", "Ping", "Cobra", "Mizuno",
			"Srixon", "Cleveland", "Scotty Cameron", "Odyssey", "Vokey",
			"FootJoy", "Bushnell", "Garmin", "Bridgestone", "PXG", "Wilson",
		},
		BagTitleTemplate: "What's Trending in Golf",
		MinViewCount:     2000,
		GapWeight:        1.0,
	},
	Tech: {
		Name:        Tech,
		DisplayName: "Tech & Gadgets",
		TrendingQueries: []string{
			"desk setup tour",
			"what's in my tech bag",
			"best gadgets",
			"ultimate desk setup",
			"home office tour",
			"best tech accessories",
		},
		ReleaseQueries: []string{
			"new tech release",
			"just announced gadgets",
			"tech launch event",
		},
		Hashtags: []string{"techsetup", "desksetup", "techtok", "gadgets"},
		ProductTypes: []string{
			"laptops", "monitors", "keyboards", "mice", "headphones",
			"webcams", "microphones", "docks", "chargers",
		},
		BrandKeywords: []string{
			"Apple", "Samsung", "Sony", "Logitech", "Razer", "Keychron",
			"Dell", "LG", "ASUS", "Lenovo", "Bose", "Sennheiser", "Elgato",
			"Anker", "CalDigit", "Shure",
		},
		BagTitleTemplate: "What's Trending in Tech",
		MinViewCount:     10000,
		GapWeight:        0.8,
	},
	Photography: {
		Name:        Photography,
		DisplayName: "Photography & Video",
		TrendingQueries: []string{
			"what's in my camera bag",
			"photography gear tour",
			"best camera gear",
			"camera bag essentials",
			"filmmaker gear",
			"best lenses",
		},
		ReleaseQueries: []string{
			"new camera announcement",
			"new lens release",
			"camera launch",
		},
		Hashtags: []string{"cameragear", "photographygear", "camerabag", "filmmaking"},
		ProductTypes: []string{
			"cameras", "lenses", "tripods", "gimbals", "camera bags",
			"lighting", "filters", "memory cards", "microphones",
		},
		BrandKeywords: []string{
			"Sony", "Canon", "Nikon", "Fujifilm", "Panasonic", "Blackmagic",
			"Sigma", "Tamron", "Zeiss", "DJI", "Manfrotto", "Peak Design",
			"SmallRig", "Atomos", "Aputure",
		},
		BagTitleTemplate: "What's Trending in Photography",
		MinViewCount:     5000,
		GapWeight:        1.2,
	},
	EDC: {
		Name:        EDC,
		DisplayName: "Everyday Carry",
		TrendingQueries: []string{
			"everyday carry",
			"edc pocket dump",
			"what's in my pockets",
			"best edc gear",
			"edc essentials",
			"minimalist edc",
		},
		ReleaseQueries: []string{
			"new knife release",
			"new edc gear",
		},
		Hashtags: []string{"edc", "everydaycarry", "pocketdump", "edcgear"},
		ProductTypes: []string{
			"knives", "flashlights", "wallets", "multitools", "pens",
			"watches", "key organizers", "notebooks",
		},
		BrandKeywords: []string{
			"Benchmade", "Spyderco", "Chris Reeve", "Leatherman", "Victorinox",
			"Olight", "Fenix", "Surefire", "Ridge", "Bellroy", "Secrid",
			"Casio", "Seiko", "Citizen",
		},
		BagTitleTemplate: "What's Trending in EDC",
		MinViewCount:     3000,
		GapWeight:        1.5,
	},
	Fitness: {
		Name:        Fitness,
		DisplayName: "Fitness & Gym",
		TrendingQueries: []string{
			"home gym tour",
			"gym bag essentials",
			"best fitness gear",
			"workout equipment review",
			"garage gym setup",
		},
		ReleaseQueries: []string{
			"new fitness equipment",
			"new gym gear release",
		},
		Hashtags: []string{"gymgear", "fitnessgear", "homegym", "garagegym"},
		ProductTypes: []string{
			"barbells", "dumbbells", "kettlebells", "racks", "benches",
			"resistance bands", "gym bags", "shoes",
		},
		BrandKeywords: []string{
			"Rogue", "REP Fitness", "Titan", "Eleiko", "Nike", "Adidas",
			"Under Armour", "Reebok", "Nobull", "Concept2", "Bowflex",
		},
		BagTitleTemplate: "What's Trending in Fitness",
		MinViewCount:     5000,
		GapWeight:        1.3,
	},
}

// Get returns the configuration for a vertical.
func Get(v Vertical) (Config, error) {
	cfg, ok := registry[v]
	if !ok {
		return Config{}, fmt.Errorf("unknown vertical: %s", v)
	}
	return cfg, nil
}

// IsValid reports whether v names a configured vertical.
func IsValid(v Vertical) bool {
	_, ok := registry[v]
	return ok
}

// All returns every configured vertical, sorted by name for determinism.
func All() []Vertical {
	out := make([]Vertical, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BagTitle composes the generated bag title for a vertical, stamped with the
// ISO week of the given time so repeated weekly runs produce distinct titles.
func BagTitle(v Vertical, now time.Time) string {
	cfg, err := Get(v)
	if err != nil {
		return "Trending Gear"
	}
	year, week := now.ISOWeek()
	return fmt.Sprintf("%s - Week %d, %d", cfg.BagTitleTemplate, week, year)
}

// BagDescription composes the generated bag description.
func BagDescription(v Vertical, sourceCount int) string {
	cfg, err := Get(v)
	if err != nil {
		return "Curated from trending videos and articles."
	}
	return fmt.Sprintf(
		"The hottest %s picks curated from %d trending videos and articles. Discover what creators are using and recommending right now.",
		strings.ToLower(cfg.DisplayName), sourceCount)
}
