// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package rss

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// aggregatorSentinel is the literal channel title Mikan Project uses for
// its "all my shows" aggregator feed. Channel and subscription overrides
// are suppressed for it; items keep their own titles and seasons.
const aggregatorSentinel = "我的番组"

const mikanChannelPrefix = "Mikan Project - "

var (
	bracketRewrite = []*regexp.Regexp{
		regexp.MustCompile(`【([^】]*)】`),
		regexp.MustCompile(`★([^★]*)★`),
		regexp.MustCompile(`\*([^*]*)\*`),
	}
	seasonalTag = regexp.MustCompile(`\[[^\]]*?月新番\]`)

	primaryGrammar = regexp.MustCompile(
		`^\[(?P<fansub>.*?)\]\s*(?P<title>.*?)\s*-\s*(?P<episode>\d+)(?:v\d)?\s*(?P<episode_name>.*?)?\s*(?P<media>[\[(].*[\])])*$`,
	)

	titleSeason = regexp.MustCompile(`([^\[\]]*)\s第([一二三四五六七八九十])季`)

	chineseDigits = map[string]int{
		"一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
		"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	}
)

// MikanParser implements Parser for the Mikan Project RSS format.
type MikanParser struct {
	log zerolog.Logger
}

func (p MikanParser) Parse(sub domain.Subscription, body []byte) ([]domain.SubscriptionItem, error) {
	ch, err := decodeChannel(body)
	if err != nil {
		return nil, err
	}

	channelTitle := strings.TrimPrefix(ch.Title, mikanChannelPrefix)
	isAggregator := channelTitle == aggregatorSentinel

	var channelParsedTitle string
	var channelSeason int
	if !isAggregator {
		channelParsedTitle, channelSeason = parseTitleAndSeason(channelTitle)
	}

	var items []domain.SubscriptionItem
	for _, raw := range ch.Items {
		item, err := parseItemTitle(raw.Title)
		if err != nil {
			// Skipped without aborting the feed.
			p.log.Warn().Err(err).Str("title", raw.Title).Msg("unrecognised episode title, skipping item")
			continue
		}

		item.URL = raw.Link
		item.Torrent = domain.TorrentRef{URL: raw.Enclosure.URL}
		item.Category = sub.Category

		if !isAggregator {
			if channelParsedTitle != "" {
				item.Title = channelParsedTitle
			}
			if channelSeason > 0 {
				item.Season = channelSeason
			}
			if sub.Title != "" {
				item.Title = sub.Title
			}
			if sub.Season != nil {
				item.Season = *sub.Season
			}
		}
		if sub.Category != "" {
			item.Category = sub.Category
		}

		items = append(items, item)
	}
	return items, nil
}

// parseItemTitle runs the primary grammar, falling back to the fallback
// grammar, and returns domain.ErrUnrecognisedEpisode if neither matches.
func parseItemTitle(raw string) (domain.SubscriptionItem, error) {
	normalized := normalizeTitle(raw)

	if item, ok := matchPrimaryGrammar(normalized); ok {
		return item, nil
	}
	if item, ok := matchFallbackGrammar(normalized); ok {
		return item, nil
	}
	return domain.SubscriptionItem{}, fmt.Errorf("%w: %s", domain.ErrUnrecognisedEpisode, raw)
}

// normalizeTitle rewrites 【X】/★X★/*X* to [X] and strips seasonal-release
// tags before the grammars run.
func normalizeTitle(s string) string {
	for _, re := range bracketRewrite {
		s = re.ReplaceAllString(s, "[$1]")
	}
	s = seasonalTag.ReplaceAllString(s, "")
	return s
}

func matchPrimaryGrammar(s string) (domain.SubscriptionItem, bool) {
	m := primaryGrammar.FindStringSubmatch(s)
	if m == nil {
		return domain.SubscriptionItem{}, false
	}
	names := primaryGrammar.SubexpNames()
	groups := make(map[string]string, len(names))
	for i, name := range names {
		if name != "" && i < len(m) {
			groups[name] = m[i]
		}
	}

	episode, err := strconv.Atoi(groups["episode"])
	if err != nil || episode <= 0 {
		return domain.SubscriptionItem{}, false
	}

	rawTitle := splitMultiTitle(groups["title"])
	title, season := parseTitleAndSeason(rawTitle)
	title = stripBrackets(title)

	return domain.SubscriptionItem{
		Fansub:       strings.TrimSpace(groups["fansub"]),
		Title:        title,
		Season:       defaultSeason(season),
		Episode:      episode,
		EpisodeTitle: strings.TrimSpace(groups["episode_name"]),
		MediaInfo:    strings.TrimSpace(groups["media"]),
	}, true
}

func matchFallbackGrammar(s string) (domain.SubscriptionItem, bool) {
	slices := splitFallback(s)
	if len(slices) < 2 {
		return domain.SubscriptionItem{}, false
	}

	fansub := "[" + strings.TrimSpace(slices[0]) + "]"
	title, season := parseTitleAndSeason(strings.TrimSpace(slices[1]))
	title = stripBrackets(title)

	episode := -1
	episodeIdx := -1
	for i := 2; i < len(slices); i++ {
		if n, err := strconv.Atoi(strings.TrimSpace(slices[i])); err == nil && n > 0 {
			episode = n
			episodeIdx = i
			break
		}
	}
	if episode <= 0 {
		return domain.SubscriptionItem{}, false
	}

	var mediaParts []string
	for i := episodeIdx + 1; i < len(slices); i++ {
		mediaParts = append(mediaParts, "["+strings.TrimSpace(slices[i])+"]")
	}

	return domain.SubscriptionItem{
		Fansub:    fansub,
		Title:     title,
		Season:    defaultSeason(season),
		Episode:   episode,
		MediaInfo: strings.Join(mediaParts, ""),
	}, true
}

// splitFallback splits on '[', ']', '-' and drops empty slices.
func splitFallback(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '[' || r == ']' || r == '-'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// splitMultiTitle returns the first component of an "A / B / C" or
// "A | B | C" string, trimmed.
func splitMultiTitle(s string) string {
	s = strings.TrimSpace(s)
	for _, sep := range []string{"/", "|"} {
		if idx := strings.Index(s, sep); idx >= 0 {
			return strings.TrimSpace(s[:idx])
		}
	}
	return s
}

var bracketedSubstring = regexp.MustCompile(`\[[^\]]*\]`)

func stripBrackets(s string) string {
	return strings.TrimSpace(bracketedSubstring.ReplaceAllString(s, ""))
}

// parseTitleAndSeason extracts a trailing "X 第N季" (N in 一..十) as
// (X, N); otherwise season defaults to 1.
func parseTitleAndSeason(s string) (string, int) {
	s = splitMultiTitle(s)
	if m := titleSeason.FindStringSubmatch(s); m != nil {
		title := strings.TrimSpace(m[1])
		season := chineseDigits[m[2]]
		if season == 0 {
			season = 1
		}
		return title, season
	}
	return strings.TrimSpace(s), 1
}

func defaultSeason(season int) int {
	if season <= 0 {
		return 1
	}
	return season
}
