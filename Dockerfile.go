# Dockerfile for the market data pipeline services. confluent-kafka-go
# links against librdkafka via cgo, so CGO must stay enabled and
# librdkafka-dev must be present at build time.
FROM golang:1.22-alpine AS builder

WORKDIR /app

RUN apk add --no-cache git build-base librdkafka-dev pkgconfig

COPY go.mod go.sum ./
RUN go mod download

COPY . .

RUN CGO_ENABLED=1 GOOS=linux go build -o /out/trades ./cmd/trades && \
    CGO_ENABLED=1 GOOS=linux go build -o /out/candles ./cmd/candles && \
    CGO_ENABLED=1 GOOS=linux go build -o /out/indicators ./cmd/indicators && \
    CGO_ENABLED=1 GOOS=linux go build -o /out/predictions ./cmd/predictions

# Final stage
FROM alpine:latest

RUN apk --no-cache add ca-certificates tzdata librdkafka

WORKDIR /root/

COPY --from=builder /out/trades /out/candles /out/indicators /out/predictions ./

# Each container runs exactly one service, selected at `docker run` time,
# e.g. `docker run pulseintel-pipeline ./trades`. Each service's
# *_METRICS_ADDR env var (default :9090, see internal/config.Base)
# exposes that service's /metrics and /health endpoints.
EXPOSE 9090

HEALTHCHECK --interval=30s --timeout=10s --start-period=5s --retries=3 \
  CMD wget --no-verbose --tries=1 --spider http://localhost:9090/health || exit 1

ENTRYPOINT []
CMD ["./trades"]
