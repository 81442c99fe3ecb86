package data

import "time"

// RequestOptions carries per-request behavior switches.
type RequestOptions struct {
	ValidateMetadata bool `json:"validateMetadata"`
}

// RequestContext is the immutable description of a track request. It is
// written once at creation time and never mutated afterwards.
type RequestContext struct {
	Metadata        AudioMetadata         `json:"metadata"`
	TargetChannelID RadioManagerChannelId `json:"targetChannelId"`
	Options         RequestOptions        `json:"options"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// RequestStatus is the coarse user-visible lifecycle tag of a request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "Pending"
	StatusProcessing RequestStatus = "Processing"
	StatusFinished   RequestStatus = "Finished"
	StatusFailed     RequestStatus = "Failed"
)

// Step names the next action a request driver must perform. It is derived
// from the populated fields of RequestState, never stored.
type Step string

const (
	StepGetTopicsIntoQueue       Step = "GetTopicsIntoQueue"
	StepDownloadNextTorrentFile  Step = "DownloadNextTorrentFile"
	StepDownload                 Step = "Download"
	StepCheckDownloadStatus      Step = "CheckDownloadStatus"
	StepUploadToRadioManager     Step = "UploadToRadioManager"
	StepAddToRadioManagerChannel Step = "AddToRadioManagerChannel"
	StepFinish                   Step = "Finish"
)

// RequestState is the mutable, persisted half of a request. Fields are
// populated monotonically as the machine advances; a nil or zero field
// means the corresponding stage has not happened yet.
type RequestState struct {
	TriedTopics          []TopicId           `json:"triedTopics,omitempty"`
	TopicsQueue          []TopicData         `json:"topicsQueue,omitempty"`
	CurrentTorrentData   []byte              `json:"currentTorrentData,omitempty"`
	CurrentTorrentID     *TorrentId          `json:"currentTorrentId,omitempty"`
	PathToDownloadedFile string              `json:"pathToDownloadedFile,omitempty"`
	RadioManagerTrackID  *RadioManagerTrackId `json:"radioManagerTrackId,omitempty"`
	RadioManagerLinkID   *RadioManagerLinkId  `json:"radioManagerLinkId,omitempty"`
}

// Step derives the current step from the set of populated fields. The first
// matching rule wins, so a fully populated state always derives Finish and a
// zero state always derives GetTopicsIntoQueue.
func (s *RequestState) Step() Step {
	switch {
	case s.RadioManagerLinkID != nil:
		return StepFinish
	case s.RadioManagerTrackID != nil:
		return StepAddToRadioManagerChannel
	case s.PathToDownloadedFile != "":
		return StepUploadToRadioManager
	case s.CurrentTorrentID != nil:
		return StepCheckDownloadStatus
	case s.CurrentTorrentData != nil:
		return StepDownload
	case len(s.TopicsQueue) > 0:
		return StepDownloadNextTorrentFile
	default:
		return StepGetTopicsIntoQueue
	}
}

// Tried reports whether a topic has already been consumed by this request.
func (s *RequestState) Tried(id TopicId) bool {
	for _, t := range s.TriedTopics {
		if t == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so repositories can hand out snapshots without
// sharing mutable slices with callers.
func (s *RequestState) Clone() *RequestState {
	if s == nil {
		return nil
	}
	c := &RequestState{PathToDownloadedFile: s.PathToDownloadedFile}
	if s.TriedTopics != nil {
		c.TriedTopics = append([]TopicId(nil), s.TriedTopics...)
	}
	if s.TopicsQueue != nil {
		c.TopicsQueue = append([]TopicData(nil), s.TopicsQueue...)
	}
	if s.CurrentTorrentData != nil {
		c.CurrentTorrentData = append([]byte(nil), s.CurrentTorrentData...)
	}
	if s.CurrentTorrentID != nil {
		id := *s.CurrentTorrentID
		c.CurrentTorrentID = &id
	}
	if s.RadioManagerTrackID != nil {
		id := *s.RadioManagerTrackID
		c.RadioManagerTrackID = &id
	}
	if s.RadioManagerLinkID != nil {
		id := *s.RadioManagerLinkID
		c.RadioManagerLinkID = &id
	}
	return c
}
