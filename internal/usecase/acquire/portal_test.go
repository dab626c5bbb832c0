package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifyPortal(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.onlinekhabar.com/2024/05/1234567", "onlinekhabar"},
		{"https://ekantipur.com/news/2024/05/01/abc.html", "ekantipur"},
		{"http://www.setopati.com/politics/321", "setopati"},
		{"https://gorkhapatraonline.com/news/1", "gorkhapatraonline"},
		{"https://nayapatrikadaily.com/news-details/1", "nayapatrikadaily"},
		{"https://www.ratopati.com/story/1", "ratopati"},
		{"https://en.setopati.com/x", "en"},
		{"ftp://ekantipur.com/x", UnknownPortal},
		{"ekantipur.com/news", UnknownPortal},
		{"https://localhost/x", UnknownPortal},
		{"", UnknownPortal},
		{"see https://www.ratopati.com/story/1 for details", "ratopati"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentifyPortal(tt.url))
		})
	}
}
