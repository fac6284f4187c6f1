package launcher

import (
	"fmt"

	"github.com/c360studio/corevalid-adapter/task"
	"github.com/c360studio/corevalid-adapter/urlvalidation"
)

// Recognised input file types.
const (
	FileTypeCnecRam  = "CNEC-RAM"
	FileTypeVertices = "VERTICES"
)

// URLExpiryHours is the lifetime of generated file URLs.
const URLExpiryHours = 1

// URLGenerator resolves a stored file path to an access URL.
type URLGenerator interface {
	GenerateURL(path string, expiryHours int) (string, error)
}

// MappedFiles holds the two request slots. A slot is nil when the task has
// no file of that type.
type MappedFiles struct {
	CnecRam  *FileResource
	Vertices *FileResource
}

// FileMapper places task inputs into request slots.
type FileMapper struct {
	urls      URLGenerator
	validator *urlvalidation.Validator
}

// NewFileMapper creates a mapper. validator may be nil.
func NewFileMapper(urls URLGenerator, validator *urlvalidation.Validator) *FileMapper {
	return &FileMapper{urls: urls, validator: validator}
}

// Map resolves every input. It stops at the first file with an unknown type
// and returns an *UnexpectedFileTypeError for it.
func (m *FileMapper) Map(inputs []task.ProcessFile) (MappedFiles, error) {
	var out MappedFiles
	for _, f := range inputs {
		var slot **FileResource
		switch f.FileType {
		case FileTypeCnecRam:
			slot = &out.CnecRam
		case FileTypeVertices:
			slot = &out.Vertices
		default:
			return MappedFiles{}, &UnexpectedFileTypeError{FileType: f.FileType}
		}

		url, err := m.urls.GenerateURL(f.FilePath, URLExpiryHours)
		if err != nil {
			return MappedFiles{}, fmt.Errorf("generate url for %s: %w", f.FileType, err)
		}
		if err := m.validator.Validate(url); err != nil {
			return MappedFiles{}, err
		}
		*slot = &FileResource{Filename: f.Filename, URL: url}
	}
	return out, nil
}
