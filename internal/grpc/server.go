// Package grpc exposes the standard gRPC health service for process
// managers and load balancers.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "storefront"

type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    zerolog.Logger
}

func NewServer(log zerolog.Logger) *Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(log)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)

	s := &Server{srv: srv, health: hs, log: log}
	s.SetServing(false)
	return s
}

func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("grpc health server listening")
	if err := s.srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop flips health to NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

// loggingInterceptor logs each unary call at debug level, with the
// request-id metadata key when the caller sets one.
func loggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		l := log.With().Str("method", info.FullMethod).Logger()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("request-id"); len(ids) > 0 {
				l = l.With().Str("request_id", ids[0]).Logger()
			}
		}

		resp, err := handler(l.WithContext(ctx), req)
		l.Debug().
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("grpc call")
		return resp, err
	}
}
