// Package fixtures builds a small but complete account export for tests.
package fixtures

import (
	"archivist/internal/testutil/ziptest"
	"fmt"
	"strings"
	"testing"
)

const (
	AccountID  = "42"
	ScreenName = "jdoe"
	// Tweets counts the records of the tweet file and its contiguous parts.
	Tweets = 4
)

func tweet(id, date, text string) string {
	return fmt.Sprintf(`{"tweet": {"id_str": %q, "created_at": %q, "full_text": %q, "retweet_count": "0", "favorite_count": "1", "display_text_range": ["0", "%d"]}}`,
		id, date, text, len(text))
}

func dm(id, sender, recipient, text, at string) string {
	return fmt.Sprintf(`{"messageCreate": {"id": %q, "senderId": %q, "recipientId": %q, "text": %q, "mediaUrls": [], "createdAt": %q}}`,
		id, sender, recipient, text, at)
}

func conversation(id string, events ...string) string {
	return fmt.Sprintf(`{"dmConversation": {"conversationId": %q, "messages": [%s]}}`, id, strings.Join(events, ","))
}

func js(name string, records ...string) string {
	return "window.YTD." + name + ".part0 = [\n" + strings.Join(records, ",\n") + "\n]"
}

// Entries returns the files of the export. Extra entries are appended.
func Entries(extra ...ziptest.Entry) []ziptest.Entry {
	entries := []ziptest.Entry{
		ziptest.File("Your archive.html", "<html></html>"),
		ziptest.File("data/account.js", js("account",
			`{"account": {"accountId": "42", "username": "jdoe", "accountDisplayName": "John Doe", "createdAt": "2012-03-01T10:00:00.000Z"}}`)),
		ziptest.File("data/profile.js", js("profile",
			`{"profile": {"description": {"bio": "hello", "website": "https://example.com", "location": "Paris"}, "avatarMediaUrl": "https://pbs.example.com/a.jpg"}}`)),
		ziptest.File("data/tweet.js", js("tweet",
			tweet("1094623948391485440", "Sun Feb 10 15:47:41 +0000 2019", "first tweet about go"),
			tweet("1094623948391485441", "Mon Feb 11 09:00:00 +0000 2019", "RT @alice: retweeted go news"),
		)),
		ziptest.File("data/tweet-part1.js", js("tweet",
			tweet("1100000000000000000", "Mon Feb 25 08:00:00 +0000 2019", "late february"),
			tweet("990000000000000000", "Fri Apr 27 12:00:00 +0000 2018", "older one"),
		)),
		// part2 is missing, so part3 is never read
		ziptest.File("data/tweet-part3.js", js("tweet",
			tweet("1200000000000000000", "Fri Nov 08 00:00:00 +0000 2019", "orphan part"),
		)),
		ziptest.File("data/direct-message.js", js("directMessages",
			conversation("7-42",
				dm("500", "7", "42", "hi john", "2019-02-10T10:00:00.000Z"),
				dm("501", "42", "7", "hey there", "2019-02-10T10:05:00.000Z"),
			),
		)),
		ziptest.File("data/direct-message-group.js", js("directMessagesGroup",
			conversation("900100",
				dm("600", "42", "", "group hello", "2019-03-01T08:00:00.000Z"),
			),
		)),
		ziptest.File("data/like.js", js("like",
			`{"like": {"tweetId": "1094623948391485440", "fullText": "liked", "expandedUrl": "https://twitter.com/i/web/status/1094623948391485440"}}`)),
		ziptest.File("data/follower.js", js("follower",
			`{"follower": {"accountId": "7", "userLink": "https://twitter.com/intent/user?user_id=7"}}`,
			`{"follower": {"accountId": "8"}}`)),
		ziptest.File("data/following.js", js("following",
			`{"following": {"accountId": "7"}}`,
			`{"following": {"accountId": "9"}}`)),
		ziptest.File("data/block.js", js("block", `{"blocking": {"accountId": "666"}}`)),
		ziptest.File("data/mute.js", js("mute", `{"muting": {"accountId": "13"`)),
		ziptest.File("data/moment.js", js("moment",
			`{"moment": {"momentId": "m1", "createdAt": "2018-01-01T00:00:00.000Z", "createdBy": "42", "title": "Trip"}}`)),
		ziptest.File("data/lists-created.js", js("userListInfo",
			`{"userListInfo": {"url": "https://twitter.com/jdoe/lists/go"}}`)),
		ziptest.Stored("data/direct_message_media/500-photo.jpg", "jpeg-bytes"),
	}
	return append(entries, extra...)
}

// Build returns the export as ZIP bytes.
func Build(t testing.TB, extra ...ziptest.Entry) []byte {
	t.Helper()
	return ziptest.Build(t, Entries(extra...)...)
}

// Write stores the export under dir and returns its path.
func Write(t testing.TB, dir string, extra ...ziptest.Entry) string {
	t.Helper()
	return ziptest.Write(t, dir, "twitter-archive.zip", Entries(extra...)...)
}
