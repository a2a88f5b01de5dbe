package cache

import "strings"

const (
	GlobalKeyPrefix = "tubequiz"
)

// Services and object types that own keys under GlobalKeyPrefix.
const (
	ServiceTranscript = "transcript"
	ServiceUsage      = "usage"
	ObjectVideo       = "video"
	ObjectStage       = "stage"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// TranscriptKey is the cache key of a video's normalized transcript.
func TranscriptKey(videoID, language string) string {
	return GenerateCacheKey(ServiceTranscript, ObjectVideo, videoID, language)
}

// UsageKey is the daily usage counter hash of a pipeline stage.
func UsageKey(stage, day string) string {
	return GenerateCacheKey(ServiceUsage, ObjectStage, stage, day)
}
