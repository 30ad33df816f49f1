package model

import "errors"

// 错误分类。各组件用 fmt.Errorf("...: %w", ErrXxx) 包装，调用方用 errors.Is 判断。
var (
	// ErrInvalidConfiguration 表示调用方传入了非法参数（如 overlap >= chunk_size）。
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrExtraction 表示源文档无法转换为纯文本。
	ErrExtraction = errors.New("text extraction failed")
	// ErrIndexCreation 表示检查或创建索引失败。
	ErrIndexCreation = errors.New("index creation failed")
	// ErrIndexWrite 表示单条分块记录写入索引失败，按分块 ID 幂等，可重试。
	ErrIndexWrite = errors.New("index write failed")
	// ErrSearch 表示检索时搜索引擎不可用或返回错误，与“零命中”区分。
	ErrSearch = errors.New("search failed")
	// ErrGeneration 表示生成服务不可用或返回了无法解析的结果。
	ErrGeneration = errors.New("generation failed")
)
