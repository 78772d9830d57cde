// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 artifacts 负责裁决报告的持久化与回读。

# 核心类型

  - FileStore：基于本地文件系统的报告存储，实现 workflow.ArtifactWriter；
    写入时自动创建目录，先写临时文件再原子重命名，并记录 SHA-256 校验和
  - Artifact：报告元数据（相对路径、大小、校验和、创建时间），
    保存在 basePath/.courtflow/artifacts.json 中

Read 与 Verify 用于回读校验：同一主题的报告写入后再读取，内容逐字节一致。
*/
package artifacts
