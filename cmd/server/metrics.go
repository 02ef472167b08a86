package main

import (
	"fmt"
	"io"

	"voxelgate.dev/internal/persistence/indexdb"
	"voxelgate.dev/internal/sim/world"
)

func writeWorldMetrics(out io.Writer, worldID string, w *world.World) {
	m := w.Metrics()
	gauge := func(name, help string, v any) {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE %s gauge\n", name)
		fmt.Fprintf(out, "%s{world=%q} %v\n", name, worldID, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE %s counter\n", name)
		fmt.Fprintf(out, "%s{world=%q} %d\n", name, worldID, v)
	}

	gauge("voxelgate_world_tick", "Current world tick.", m.Tick)
	gauge("voxelgate_world_loaded_chunks", "Chunks in the loaded set.", m.LoadedChunks)
	gauge("voxelgate_world_resident_chunks", "Chunks held in the store.", m.ResidentChunks)
	gauge("voxelgate_world_pending_loads", "Chunks still queued for loading.", m.PendingLoads)
	gauge("voxelgate_world_meshes", "Cached chunk meshes.", m.Meshes)
	gauge("voxelgate_world_mesh_vertices", "Vertices across cached meshes.", m.MeshVertices)
	gauge("voxelgate_world_mesh_indices", "Indices across cached meshes.", m.MeshIndices)
	gauge("voxelgate_world_observers", "Connected observer sessions.", m.Observers)
	gauge("voxelgate_world_step_ms", "Duration of the last world step in milliseconds.", m.StepMS)
	counter("voxelgate_world_loaded_total", "Chunks loaded since start.", m.LoadedTotal)
	counter("voxelgate_world_evicted_total", "Chunks evicted since start.", m.EvictedTotal)
	counter("voxelgate_world_gates_total", "Gate frames placed since start.", m.GatesTotal)
	counter("voxelgate_world_mesh_builds_total", "Mesh builds since start.", m.MeshBuilds)

	fmt.Fprintf(out, "# HELP voxelgate_world_queue_depth Inbound world queue depth.\n")
	fmt.Fprintf(out, "# TYPE voxelgate_world_queue_depth gauge\n")
	fmt.Fprintf(out, "voxelgate_world_queue_depth{world=%q,queue=\"pose\"} %d\n", worldID, m.QueueDepths.Pose)
	fmt.Fprintf(out, "voxelgate_world_queue_depth{world=%q,queue=\"edits\"} %d\n", worldID, m.QueueDepths.Edits)
	fmt.Fprintf(out, "voxelgate_world_queue_depth{world=%q,queue=\"join\"} %d\n", worldID, m.QueueDepths.Join)
	fmt.Fprintf(out, "voxelgate_world_queue_depth{world=%q,queue=\"leave\"} %d\n", worldID, m.QueueDepths.Leave)
}

func writeIndexMetrics(out io.Writer, worldID string, st indexdb.Stats) {
	fmt.Fprintf(out, "# HELP voxelgate_index_queue_depth Pending index writes.\n")
	fmt.Fprintf(out, "# TYPE voxelgate_index_queue_depth gauge\n")
	fmt.Fprintf(out, "voxelgate_index_queue_depth{world=%q} %d\n", worldID, st.QueueDepth)
	fmt.Fprintf(out, "# HELP voxelgate_index_queue_capacity Index write queue capacity.\n")
	fmt.Fprintf(out, "# TYPE voxelgate_index_queue_capacity gauge\n")
	fmt.Fprintf(out, "voxelgate_index_queue_capacity{world=%q} %d\n", worldID, st.QueueCapacity)
	fmt.Fprintf(out, "# HELP voxelgate_index_dropped_total Index writes dropped on a full queue.\n")
	fmt.Fprintf(out, "# TYPE voxelgate_index_dropped_total counter\n")
	fmt.Fprintf(out, "voxelgate_index_dropped_total{world=%q,kind=\"tick\"} %d\n", worldID, st.DropTickTotal)
	fmt.Fprintf(out, "voxelgate_index_dropped_total{world=%q,kind=\"audit\"} %d\n", worldID, st.DropAuditTotal)
	fmt.Fprintf(out, "voxelgate_index_dropped_total{world=%q,kind=\"chunk\"} %d\n", worldID, st.DropChunkTotal)
	fmt.Fprintf(out, "voxelgate_index_dropped_total{world=%q,kind=\"gate\"} %d\n", worldID, st.DropGateTotal)
}
