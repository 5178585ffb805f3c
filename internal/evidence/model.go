package evidence

import "time"

// 受け付ける添付の上限（10MB）
const MaxUploadBytes = 10 << 20

// File は evidence_files テーブルの1行。実体は Service.dir 配下に ref 名で置く
type File struct {
	EvidenceRef  string    `json:"evidence_ref"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedBy   string    `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
