package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/miradorstack/alertmanager-cachet/internal/config"
)

// Server owns the webhook HTTP listener and the optional gRPC health listener.
type Server struct {
	cfg          config.ServerConfig
	httpServer   *http.Server
	listener     net.Listener
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *health.Server
}

// NewServer binds the configured addresses. The gRPC health listener is only created when
// cfg.GRPCHealthAddress is set.
func NewServer(cfg config.ServerConfig, handler http.Handler, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	s := &Server{
		cfg:      cfg,
		listener: lis,
		httpServer: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
		},
	}

	if cfg.GRPCHealthAddress == "" {
		return s, nil
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPCHealthAddress)
	if err != nil {
		_ = lis.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCHealthAddress, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)
	grpc_prometheus.Register(grpcServer)

	s.grpcServer = grpcServer
	s.grpcListener = grpcLis
	s.health = healthSrv
	return s, nil
}

// Start serves both listeners until Shutdown is invoked or one of them fails.
func (s *Server) Start() error {
	if s.httpServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.grpcServer != nil {
				s.grpcServer.Stop()
			}
			return fmt.Errorf("webhook listener: %w", err)
		}
		return nil
	})
	if s.grpcServer != nil {
		g.Go(func() error {
			if err := s.grpcServer.Serve(s.grpcListener); err != nil {
				_ = s.httpServer.Close()
				return fmt.Errorf("grpc health listener: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Shutdown marks the service NOT_SERVING, drains in-flight webhooks and stops the gRPC
// listener, forcing it closed once ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.Shutdown()
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	if s.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-ctx.Done():
			s.grpcServer.Stop()
		case <-stopped:
		}
	}
	return err
}

// Address exposes the bound webhook address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GRPCAddress exposes the bound gRPC health address, or "" when disabled.
func (s *Server) GRPCAddress() string {
	if s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
