// Package tokenizer 统计报告文本的 token 数，供运行审计记录使用。
// 优先使用 tiktoken 编码，编码无法加载（例如离线环境）时降级为
// 基于字符类别的估算器。
package tokenizer
