// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package rss

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

func TestParseTitleAndSeason_ExplicitSeason(t *testing.T) {
	title, season := parseTitleAndSeason("败犬女主太多了 第三季")
	assert.Equal(t, "败犬女主太多了", title)
	assert.Equal(t, 3, season)
}

func TestParseTitleAndSeason_DefaultsToOne(t *testing.T) {
	title, season := parseTitleAndSeason("葬送的芙莉莲")
	assert.Equal(t, "葬送的芙莉莲", title)
	assert.Equal(t, 1, season)
}

func TestParseTitleAndSeason_MultiTitleTakesFirst(t *testing.T) {
	title, season := parseTitleAndSeason("A / B / C 第二季")
	assert.Equal(t, "A", title)
	assert.Equal(t, 1, season)
}

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>%s</title>
<link>https://mikanani.me/</link>
<item>
<title>%s</title>
<link>https://mikanani.me/Home/Episode/abc</link>
<enclosure url="https://mikanani.me/Download/abc.torrent" length="0" type="application/x-bittorrent"/>
</item>
</channel>
</rss>`

func TestMikanParser_PrimaryGrammar(t *testing.T) {
	body := []byte(testFeed("Mikan Project - 葬送的芙莉莲", "[Lilith-Raws] 葬送的芙莉莲 - 07 [WebRip][1080p][AVC AAC][简繁日内封][MP4]"))

	items, err := MikanParser{}.Parse(domain.Subscription{}, body)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "Lilith-Raws", item.Fansub)
	assert.Equal(t, "葬送的芙莉莲", item.Title)
	assert.Equal(t, 7, item.Episode)
	assert.Equal(t, 1, item.Season)
	assert.Equal(t, "https://mikanani.me/Download/abc.torrent", item.Torrent.URL)
}

func TestMikanParser_FallbackGrammar(t *testing.T) {
	// No " - " separator before the episode number, so the primary grammar
	// can't match and this falls through to the bracket/hyphen split.
	body := []byte(testFeed("Mikan Project - 葬送的芙莉莲", "[Lilith][葬送的芙莉莲]07[WebRip][1080p]"))

	items, err := MikanParser{}.Parse(domain.Subscription{}, body)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "[Lilith]", item.Fansub)
	assert.Equal(t, "葬送的芙莉莲", item.Title)
	assert.Equal(t, 7, item.Episode)
	assert.Equal(t, "[WebRip][1080p]", item.MediaInfo)
}

func TestMikanParser_UnrecognisedEpisodeIsSkippedNotFatal(t *testing.T) {
	body := []byte(testFeed("Mikan Project - 葬送的芙莉莲", "just some unparseable garbage title"))

	items, err := MikanParser{}.Parse(domain.Subscription{}, body)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMikanParser_AggregatorChannelKeepsItemTitle(t *testing.T) {
	body := []byte(testFeed("我的番组", "[Lilith-Raws] 葬送的芙莉莲 - 07 [WebRip][1080p][AVC AAC][简繁日内封][MP4]"))

	items, err := MikanParser{}.Parse(domain.Subscription{}, body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "葬送的芙莉莲", items[0].Title)
}

func TestMikanParser_SubscriptionOverridesTitleAndSeason(t *testing.T) {
	body := []byte(testFeed("Mikan Project - 葬送的芙莉莲", "[Lilith-Raws] 葬送的芙莉莲 - 07 [WebRip][1080p][AVC AAC][简繁日内封][MP4]"))
	season := 2
	sub := domain.Subscription{Title: "Frieren", Season: &season, Category: "anime"}

	items, err := MikanParser{}.Parse(sub, body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Frieren", items[0].Title)
	assert.Equal(t, 2, items[0].Season)
	assert.Equal(t, "anime", items[0].Category)
}

func testFeed(channelTitle, itemTitle string) string {
	return fmt.Sprintf(feedTemplate, channelTitle, itemTitle)
}
