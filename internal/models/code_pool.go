package models

// Collection names a persisted collection. Change notifications are keyed by it.
type Collection string

const (
	CollectionTeachers          Collection = "teachers"
	CollectionAssignments       Collection = "assignments"
	CollectionSubjectCodes      Collection = "subjectCodes"
	CollectionShifts            Collection = "shifts"
	CollectionPacketCodes       Collection = "packetCodes"
	CollectionTotalExamsOptions Collection = "totalExamsOptions"
)

// PoolCollections lists the four code pools in setup order.
var PoolCollections = []Collection{
	CollectionSubjectCodes,
	CollectionShifts,
	CollectionPacketCodes,
	CollectionTotalExamsOptions,
}

// AllCollections lists every collection the snapshot mirrors.
var AllCollections = append([]Collection{CollectionTeachers, CollectionAssignments}, PoolCollections...)

// CodePools holds the configured value pools used to build assignments.
type CodePools struct {
	SubjectCodes      []string `json:"subject_codes"`
	Shifts            []string `json:"shifts"`
	PacketCodes       []string `json:"packet_codes"`
	TotalExamsOptions []int    `json:"total_exams_options"`
}

// SetupRequest carries the free-text, comma separated pool definitions.
type SetupRequest struct {
	SubjectCodes      string `json:"subject_codes"`
	Shifts            string `json:"shifts"`
	PacketCodes       string `json:"packet_codes"`
	TotalExamsOptions string `json:"total_exams_options"`
}

// FormOptions bundles everything an assignment form needs to offer.
type FormOptions struct {
	Teachers              []Teacher `json:"teachers"`
	AvailableSubjectCodes []string  `json:"available_subject_codes"`
	Shifts                []string  `json:"shifts"`
	AvailablePacketCodes  []string  `json:"available_packet_codes"`
	TotalExamsOptions     []int     `json:"total_exams_options"`
}
