package gbfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Feed locates the GBFS files of one operator.
type Feed struct {
	Operator              string `yaml:"operator"`
	StationInformationURL string `yaml:"station_information"`
	StationStatusURL      string `yaml:"station_status"`
}

const odptBase = "https://api-public.odpt.org/api/v4/gbfs/"

// DefaultFeeds are the ODPT feeds for the Kyoto operators.
func DefaultFeeds() []Feed {
	return []Feed{
		{
			Operator:              "docomo",
			StationInformationURL: odptBase + "docomo-cycle/station_information.json",
			StationStatusURL:      odptBase + "docomo-cycle/station_status.json",
		},
		{
			Operator:              "hellocycling",
			StationInformationURL: odptBase + "hellocycling/station_information.json",
			StationStatusURL:      odptBase + "hellocycling/station_status.json",
		},
	}
}

type feedsFile struct {
	Feeds []Feed `yaml:"feeds"`
}

// DecodeFeedsYAML reads a feed list of the form
//
//	feeds:
//	  - operator: docomo
//	    station_information: https://...
//	    station_status: https://...
func DecodeFeedsYAML(r io.Reader) ([]Feed, error) {
	var f feedsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding feeds: %w", err)
	}

	seen := make(map[string]bool, len(f.Feeds))
	for i, feed := range f.Feeds {
		switch {
		case feed.Operator == "":
			return nil, fmt.Errorf("feed %d: operator is required", i)
		case feed.StationInformationURL == "" || feed.StationStatusURL == "":
			return nil, fmt.Errorf("feed %q: both station_information and station_status are required", feed.Operator)
		case seen[feed.Operator]:
			return nil, fmt.Errorf("feed %q: duplicate operator", feed.Operator)
		}
		seen[feed.Operator] = true
	}
	return f.Feeds, nil
}

// LoadFeedsFile reads feeds from a YAML file.
func LoadFeedsFile(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeFeedsYAML(f)
}
