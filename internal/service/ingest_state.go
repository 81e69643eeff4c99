// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"lexsmart-go/internal/model"
)

// ErrInvalidTransition 表示上传流程收到了与当前状态不匹配的操作。
var ErrInvalidTransition = errors.New("上传流程状态非法")

// UploadState 是上传流程的状态。
// 流程是一台显式状态机：AwaitingMetadata -> AwaitingFile -> ReadyToUpload -> Uploaded，
// 乱序操作会被拒绝，而不是靠约定保证调用顺序。
type UploadState int

const (
	StateAwaitingMetadata UploadState = iota
	StateAwaitingFile
	StateReadyToUpload
	StateUploaded
)

// String 返回状态名，用于日志和错误信息。
func (s UploadState) String() string {
	switch s {
	case StateAwaitingMetadata:
		return "AwaitingMetadata"
	case StateAwaitingFile:
		return "AwaitingFile"
	case StateReadyToUpload:
		return "ReadyToUpload"
	case StateUploaded:
		return "Uploaded"
	default:
		return "Unknown"
	}
}

// UploadWorkflow 保存一次上传流程的状态、元数据与待上传文件。
type UploadWorkflow struct {
	state    UploadState
	metadata model.Metadata
	file     io.Reader
	size     int64
}

// NewUploadWorkflow 创建一个处于初始状态的上传流程。
func NewUploadWorkflow() *UploadWorkflow {
	return &UploadWorkflow{state: StateAwaitingMetadata}
}

// State 返回当前状态。
func (w *UploadWorkflow) State() UploadState {
	return w.state
}

// SetMetadata 提交完整的文档元数据。只允许在初始状态调用，
// 元数据不完整时拒绝并保持原状态。
func (w *UploadWorkflow) SetMetadata(meta model.Metadata) error {
	if w.state != StateAwaitingMetadata {
		return fmt.Errorf("%w: 当前状态 %s 不接受元数据", ErrInvalidTransition, w.state)
	}
	if missing := meta.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("元数据不完整, 缺少字段: %s", strings.Join(missing, ", "))
	}
	w.metadata = meta
	w.state = StateAwaitingFile
	return nil
}

// AttachFile 附加待上传的 PDF 文件流。必须在元数据提交之后调用。
func (w *UploadWorkflow) AttachFile(file io.Reader, size int64) error {
	if w.state != StateAwaitingFile {
		return fmt.Errorf("%w: 当前状态 %s 不接受文件", ErrInvalidTransition, w.state)
	}
	if file == nil || size <= 0 {
		return fmt.Errorf("文件流为空或大小非法: %d", size)
	}
	w.file = file
	w.size = size
	w.state = StateReadyToUpload
	return nil
}

// Metadata 返回已提交的元数据。
func (w *UploadWorkflow) Metadata() model.Metadata {
	return w.metadata
}

// File 返回已附加的文件流与大小。
func (w *UploadWorkflow) File() (io.Reader, int64) {
	return w.file, w.size
}

// MarkUploaded 标记上传完成。只允许在就绪状态调用，状态到达后不可回退。
func (w *UploadWorkflow) MarkUploaded() error {
	if w.state != StateReadyToUpload {
		return fmt.Errorf("%w: 当前状态 %s 不能标记为已上传", ErrInvalidTransition, w.state)
	}
	w.state = StateUploaded
	return nil
}
