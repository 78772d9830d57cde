// Package telemetry 封装 OpenTelemetry SDK 初始化，为 courtflow 配置
// OTLP gRPC 的 TracerProvider 和 MeterProvider。禁用时保持 otel 全局的
// noop 实现，不连接任何外部服务。
package telemetry
