package constant

type RecordingType string

const (
	RecordingTypeThermalRaw RecordingType = "thermalRaw"
	RecordingTypeAudio      RecordingType = "audio"
)

type ProcessingState string

const (
	ProcessingStateGetMetadata ProcessingState = "getMetadata"
	ProcessingStateToMp4       ProcessingState = "toMp4"
	ProcessingStateToMp3       ProcessingState = "toMp3"
	ProcessingStateFinished    ProcessingState = "FINISHED"
)

type GlobalPermission string

const (
	GlobalPermissionOff   GlobalPermission = "off"
	GlobalPermissionRead  GlobalPermission = "read"
	GlobalPermissionWrite GlobalPermission = "write"
)

type TagMode string

const (
	TagModeAny             TagMode = "any"
	TagModeUntagged        TagMode = "untagged"
	TagModeTagged          TagMode = "tagged"
	TagModeHumanTagged     TagMode = "human-tagged"
	TagModeAutomaticTagged TagMode = "automatic-tagged"
	TagModeBothTagged      TagMode = "both-tagged"
	TagModeNoHuman         TagMode = "no-human"
	TagModeAutomaticOnly   TagMode = "automatic-only"
	TagModeHumanOnly       TagMode = "human-only"
	TagModeAutomaticHuman  TagMode = "automatic+human"
)

// DefaultNamedTagModes are the free-text modes that match a specific tag label.
func DefaultNamedTagModes() []string {
	return []string{"cool", "missed track", "multiple animals", "trapped in trap"}
}

// TagNameInteresting is the synthetic tag-name filter matching anything
// except bird tags and false positives.
const TagNameInteresting = "interesting"

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
