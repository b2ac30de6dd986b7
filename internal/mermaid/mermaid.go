// Package mermaid 把 mermaid 图表源码编码为 mermaid.ink / mermaid.live URL
//
// 语言标签为 mermaid 的代码块不走语法高亮，而是渲染成一张
// mermaid.ink 托管的图片，旁边附 mermaid.live 的可编辑链接。
// URL 生成是纯函数，渲染阶段不产生任何网络请求。
package mermaid

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Config Mermaid 配置
type Config struct {
	Theme string `json:"theme"`
}

// DefaultConfig 返回默认 Mermaid 配置
func DefaultConfig() *Config {
	return &Config{
		Theme: "default",
	}
}

// compressToDeflate 使用 DEFLATE 算法压缩数据
func compressToDeflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// safeBase64Encode URL-safe base64 编码
func safeBase64Encode(data []byte) string {
	return base64.URLEncoding.EncodeToString(data)
}

// GeneratePako 生成 Mermaid 图表的 pako URL 片段
func GeneratePako(graphMarkdown string, config *Config) (string, error) {
	if config == nil {
		config = DefaultConfig()
	}

	graphData := map[string]interface{}{
		"code":    graphMarkdown,
		"mermaid": config,
	}

	jsonBytes, err := json.Marshal(graphData)
	if err != nil {
		return "", err
	}

	compressedData, err := compressToDeflate(jsonBytes)
	if err != nil {
		return "", err
	}

	base64Encoded := safeBase64Encode(compressedData)
	return fmt.Sprintf("pako:%s", base64Encoded), nil
}

// GetMermaidLiveURL 获取 Mermaid Live 编辑器 URL
// 渲染时作为图题链接，方便在浏览器中编辑图表
func GetMermaidLiveURL(graphMarkdown string) (string, error) {
	pako, err := GeneratePako(graphMarkdown, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://mermaid.live/edit/#%s", pako), nil
}

// GetMermaidInkURL 获取 Mermaid Ink 图片 URL
// 作为 <img> 的 src，也可交给资源下载层取回本地
func GetMermaidInkURL(graphMarkdown string) (string, error) {
	pako, err := GeneratePako(graphMarkdown, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://mermaid.ink/img/%s?theme=default&width=500&scale=2&type=webp", pako), nil
}
