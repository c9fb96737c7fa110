package viewer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hive-corporation/pivotlink/internal/core/domain"
)

// Fixed fragments of the pivotintovision URL schema. The viewer expects
// these byte-for-byte, including the pre-encoded %3A / %2C / %26 sequences,
// so the link is assembled by string concatenation rather than net/url.
const (
	pivotPath       = "/vision2/v1/pivotintovision/"
	datasourcesAll  = "tag%3Aall"
	toolCombination = "trafficOverTime_by_app%2Cconversations_by_ipaddress"
)

const (
	maxWindowMillis = 3600000 // cap the displayed window to the most recent hour
	endPadMillis    = 240000  // 4 minutes after, to pick up events right after this update
	startPadMillis  = 120000  // 2 minutes before, so a single sample is not all to the left
)

// How many destinations still get a per-conversation filter. Above this the
// link falls back to filtering on the source address alone.
const maxConversations = 5

// Endace builds deep links into an Endace packet-analytics appliance.
type Endace struct {
	baseURL string
}

func NewEndace(baseURL string) *Endace {
	return &Endace{baseURL: strings.TrimRight(baseURL, "/")}
}

// BuildLink maps one detection to a pivot URL embedding a padded time window
// and an address filter. Pure: identical detection state always yields an
// identical URL.
func (e *Endace) BuildLink(detection domain.Detection) (string, error) {
	if detection.SourceAddress == "" {
		return "", fmt.Errorf("detection %d has no source address", detection.ID)
	}

	start := detection.FirstSeen.UTC().UnixMilli()
	end := detection.LastSeen.UTC().UnixMilli()
	if end-start > maxWindowMillis {
		start = end - maxWindowMillis
	}
	end += endPadMillis
	start -= startPadMillis

	title := "Vectra" + strconv.Itoa(detection.ID)

	var filter string
	if n := len(detection.DestinationAddresses); n < 1 || n > maxConversations {
		filter = "ip=" + detection.SourceAddress
	} else {
		pairs := make([]string, 0, n)
		for _, dst := range detection.DestinationAddresses {
			pairs = append(pairs, detection.SourceAddress+"%26"+dst)
		}
		filter = "ip_conv=" + strings.Join(pairs, ",")
	}

	return fmt.Sprintf("%s%s?datasources=%s&title=%s&start=%d&end=%d&%s&tools=%s",
		e.baseURL, pivotPath, datasourcesAll, title, start, end, filter, toolCombination), nil
}
