// Package splitnet trains neural networks that have been cut into sequential blocks, without
// backpropagating through the whole network. Each block's output is replaced by a free "split
// variable", and the network is instead trained by solving the constrained problem:
//
//		minimize    loss(f_L(S_{L-1}), Y)
//		subject to  f_0(X) = S_0,  f_l(S_{l-1}) = S_l
//
// The constraints are attached to the objective with Lagrange multipliers, and the saddle point of
// the resulting Lagrangian is found with a primal-dual extragradient method. Block weights and
// split variables are the primal variables (descent), multipliers are the dual variables (ascent).
//
// For brevity, splitnet is abbreviated 'sn'.
//
// Creating Networks
//
// Networks are built one Block at a time:
//
//		net := new(sn.Network)
//		net.Add(blocks.Sequential(blocks.Dense(256, blocks.ReLU())))
//		net.Add(blocks.Sequential(blocks.Dense(10, blocks.LogSoftmax())))
//
//		if err := net.Finalize(costfuncs.NLL(), inputSize, initializers.He(), rng); err != nil {
//			return err
//		}
//
// Blocks are found in the subpackage "blocks", cost functions in "costfuncs", and so forth for
// "optimizers", "hyperparams", "initializers" and "penalties".
//
// Before training, the split variables must be seeded from the training inputs. SeedSplits runs
// the inputs forward through every block and stores the outputs, so that all constraints start
// out satisfied:
//
//		net.SeedSplits(train.X, 0, rng)
//
// Training
//
// A Solver holds the update rule and one variable group for each of the block weights (theta),
// the split variables (x), and the multipliers (y):
//
//		adam := optimizers.Adam().Betas(0.9, 0.99)
//		solver := &sn.Solver{
//			Method: sn.Extragradient,
//			Theta:  sn.Group{Optimizer: adam, LearningRate: hyperparams.Constant(0.001)},
//			Split:  sn.Group{Optimizer: adam, LearningRate: hyperparams.Constant(0.05)},
//			Mult:   sn.Group{Optimizer: adam, LearningRate: hyperparams.Constant(0.08)},
//			GradClip: 4,
//		}
//
// Every variable gets its own optimizer state, so sharing an Optimizer between groups is fine.
//
// Training is done with Train, which takes its optional arguments through TrainArgs in the same
// way as the rest of the package:
//
//		err := sn.Train(ctx, sn.TrainArgs{
//			Net:          net,
//			Solver:       solver,
//			Train:        train,
//			Batches:      datasets.RandomBatches(train.Size(), 128, rng),
//			RunCondition: sn.TrainUntil(10000),
//			ShouldEval:   sn.Every(100),
//			Update:       metrics.Update(metrics.Log(logger), logger),
//		})
//
// TrainBaseline trains the same blocks with ordinary end-to-end backpropagation, for comparison.
//
// Saving and Loading
//
//		func (net *Network) Save(dirPath string, overwrite bool) error
//		func Load(dirPath string, cf CostFunction) (*Network, error)
//
// Blocks are restored through the type registry (see RegisterBlock), which the "blocks" package
// fills on import.
package splitnet
