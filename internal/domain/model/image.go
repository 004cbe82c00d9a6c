package model

// Image is an uploaded image held in memory so it can be sent to several
// models concurrently.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}
