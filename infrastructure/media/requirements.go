package media

import (
	"time"

	"social-publisher/domain/model"
)

const mb = 1024 * 1024

var requirements = map[model.Platform]model.PlatformMediaRequirements{
	model.PlatformInstagram: {
		MaxFileSize:        8 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1080, Height: 1350},
		MinImageDimensions: model.Dimensions{Width: 600, Height: 600},
		MaxVideoDuration:   60 * time.Second,
		MaxVideoFileSize:   100 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "mp4", "mov"},
		AspectRatios:       []string{"1:1", "4:5", "9:16"},
		MaxTextLength:      2200,
	},
	model.PlatformFacebook: {
		MaxFileSize:        10 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1200, Height: 1200},
		MinImageDimensions: model.Dimensions{Width: 200, Height: 200},
		MaxVideoDuration:   240 * time.Second,
		MaxVideoFileSize:   4 * 1024 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "gif", "mp4", "mov", "avi"},
		MaxTextLength:      63206,
	},
	model.PlatformX: {
		MaxFileSize:        15 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1200, Height: 675},
		MinImageDimensions: model.Dimensions{Width: 200, Height: 200},
		MaxVideoDuration:   140 * time.Second,
		MaxVideoFileSize:   512 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "gif", "mp4", "mov"},
		MaxTextLength:      280,
	},
	model.PlatformLinkedIn: {
		MaxFileSize:        20 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1200, Height: 627},
		MinImageDimensions: model.Dimensions{Width: 200, Height: 200},
		MaxVideoDuration:   10 * time.Minute,
		MaxVideoFileSize:   5 * 1024 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "mp4", "mov"},
		MaxTextLength:      3000,
	},
	model.PlatformTikTok: {
		MaxFileSize:        287 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1080, Height: 1920},
		MinImageDimensions: model.Dimensions{Width: 540, Height: 960},
		MaxVideoDuration:   10 * time.Minute,
		MaxVideoFileSize:   287 * mb,
		AllowedFormats:     []string{"mp4", "mov", "avi", "flv", "jpg", "png", "gif"},
		AspectRatios:       []string{"9:16", "16:9", "1:1"},
		MaxTextLength:      2200,
	},
	model.PlatformYouTube: {
		MaxFileSize:        256 * 1024 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1920, Height: 1080},
		MinImageDimensions: model.Dimensions{Width: 1280, Height: 720},
		// 12 hours is the upload ceiling for verified accounts.
		MaxVideoDuration: 12 * time.Hour,
		MaxVideoFileSize: 256 * 1024 * mb,
		AllowedFormats:   []string{"mp4", "mov", "avi", "mkv", "flv", "wmv", "webm", "3gp"},
		MaxTextLength:    5000,
	},
	model.PlatformThreads: {
		MaxFileSize:        8 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1080, Height: 1350},
		MinImageDimensions: model.Dimensions{Width: 600, Height: 600},
		MaxVideoDuration:   60 * time.Second,
		MaxVideoFileSize:   100 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "mp4", "mov"},
		MaxTextLength:      500,
	},
	model.PlatformPinterest: {
		MaxFileSize:        25 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1500, Height: 2000},
		MinImageDimensions: model.Dimensions{Width: 300, Height: 400},
		MaxVideoDuration:   5 * time.Minute,
		MaxVideoFileSize:   500 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "gif", "webp", "mp4", "mov"},
		AspectRatios:       []string{"2:3", "1:1", "16:9"},
		MaxTextLength:      500,
	},
	model.PlatformBluesky: {
		MaxFileSize:        1 * mb,
		MaxImageDimensions: model.Dimensions{Width: 2000, Height: 2000},
		MinImageDimensions: model.Dimensions{Width: 100, Height: 100},
		AllowedFormats:     []string{"jpg", "jpeg", "png"},
		MaxTextLength:      300,
	},
	model.PlatformMastodon: {
		MaxFileSize:        41 * mb,
		MaxImageDimensions: model.Dimensions{Width: 1600, Height: 1200},
		MinImageDimensions: model.Dimensions{Width: 100, Height: 100},
		MaxVideoDuration:   time.Hour,
		MaxVideoFileSize:   41 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "gif", "webp", "mp4", "webm"},
		MaxTextLength:      500,
	},
	model.PlatformGoogleBusiness: {
		MaxFileSize:        10 * mb,
		MaxImageDimensions: model.Dimensions{Width: 2000, Height: 2000},
		MinImageDimensions: model.Dimensions{Width: 100, Height: 100},
		MaxVideoDuration:   30 * time.Second,
		MaxVideoFileSize:   100 * mb,
		AllowedFormats:     []string{"jpg", "jpeg", "png", "mp4"},
		MaxTextLength:      1500,
	},
}

var videoFormats = map[string]bool{
	"mp4": true, "mov": true, "avi": true, "mkv": true, "flv": true,
	"wmv": true, "webm": true, "3gp": true,
}
